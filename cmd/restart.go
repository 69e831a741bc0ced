package cmd

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/orchestrator"
	"github.com/coaxwatch/coaxwatch/pkg/parsers"
)

var restartCmd = &cobra.Command{
	Use:   "restart <host>",
	Short: "Reboot a modem (models that declare restart support)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := parsers.NewRegistry()
		modem := modemConfig(args[0])
		orch, err := orchestrator.New(log, registry, modemOptions(modem))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		creds := auth.Credentials{
			Username: modem.Username,
			Password: modem.Password,
		}
		ok, err := orch.RestartModem(ctx, creds)
		if err != nil {
			color.Red("Restart failed: %v", err)
			if diag := diagnosisFor(err); diag.Summary != "" {
				color.White("  %s", diag.Summary)
				for _, step := range diag.Steps {
					color.White("    - %s", step)
				}
			}
			return err
		}
		if ok {
			color.Green("Restart issued; the modem will be unreachable while it reboots")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restartCmd)
}
