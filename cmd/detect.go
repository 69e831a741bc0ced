package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coaxwatch/coaxwatch/pkg/orchestrator"
	"github.com/coaxwatch/coaxwatch/pkg/parsers"
)

var detectCmd = &cobra.Command{
	Use:   "detect <host>",
	Short: "Show which auth strategy and parser match a modem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := parsers.NewRegistry()
		orch, err := orchestrator.New(log, registry, modemOptions(modemConfig(args[0])))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		result, pollErr := orch.GetModemData(ctx)
		info := orch.DetectionInfo()

		color.Cyan("Detection info for %s:", args[0])
		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-12s %v\n", k, info[k])
		}

		if pollErr != nil {
			color.Red("Probe poll failed: %v", pollErr)
			if diag := diagnosisFor(pollErr); diag.Summary != "" {
				color.White("  %s", diag.Summary)
				for _, step := range diag.Steps {
					color.White("    - %s", step)
				}
			}
			responses, failures := orch.Diagnostics().Snapshot()
			if len(responses)+len(failures) > 0 {
				color.Yellow("Captured %d responses, %d failures (cycle %s)",
					len(responses), len(failures), orch.Diagnostics().CycleID())
			}
			return pollErr
		}
		color.Green("Probe poll succeeded: %d downstream channels via %s",
			len(result.Downstream)+len(result.DownstreamOFDM), result.ParserName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
