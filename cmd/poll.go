package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/docsis"
	"github.com/coaxwatch/coaxwatch/pkg/orchestrator"
	"github.com/coaxwatch/coaxwatch/pkg/parsers"
)

var pollCmd = &cobra.Command{
	Use:   "poll <host...>",
	Short: "Poll one or more modems and print their channel data",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPoll,
}

func init() {
	pollCmd.Flags().Bool("json", false, "emit raw JSON instead of the summary table")
	rootCmd.AddCommand(pollCmd)
}

type pollOutcome struct {
	host   string
	result *docsis.PollResult
	err    error
}

func runPoll(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	registry := parsers.NewRegistry()

	cfg.Modems = cfg.Modems[:0]
	for _, host := range args {
		cfg.Modems = append(cfg.Modems, modemConfig(host))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	var mu sync.Mutex
	outcomes := make([]pollOutcome, 0, len(cfg.Modems))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, modem := range cfg.Modems {
		modem := modem
		g.Go(func() error {
			orch, err := orchestrator.New(log, registry, modemOptions(modem))
			if err != nil {
				return err
			}
			result, err := orch.GetModemData(gctx)
			mu.Lock()
			outcomes = append(outcomes, pollOutcome{host: modem.Host, result: result, err: err})
			mu.Unlock()
			// One bad modem must not cancel the rest.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, out := range outcomes {
			if out.err != nil {
				continue
			}
			if err := enc.Encode(out.result); err != nil {
				return err
			}
		}
	} else {
		printSummary(outcomes)
	}

	for _, out := range outcomes {
		if out.err != nil {
			return fmt.Errorf("%s: %w", out.host, out.err)
		}
	}
	return nil
}

func printSummary(outcomes []pollOutcome) {
	for _, out := range outcomes {
		if out.err != nil {
			color.Red("%-20s FAILED: %v", out.host, out.err)
			if diag := diagnosisFor(out.err); diag.Summary != "" {
				color.White("  %s", diag.Summary)
				for _, step := range diag.Steps {
					color.White("    - %s", step)
				}
			}
			continue
		}
		r := out.result
		statusColor := color.Green
		if r.Status != docsis.StatusOK {
			statusColor = color.Yellow
		}
		statusColor("%-20s %s (%s)", out.host, r.ParserName, r.Status)
		fmt.Printf("  downstream: %d SC-QAM, %d OFDM   upstream: %d\n",
			len(r.Downstream), len(r.DownstreamOFDM), len(r.Upstream))
		if r.System != nil {
			if r.System.SoftwareVersion != "" {
				fmt.Printf("  software: %s\n", r.System.SoftwareVersion)
			}
			if r.System.Uptime > 0 {
				fmt.Printf("  uptime: %s\n", r.System.Uptime)
			}
		}
	}
}

func diagnosisFor(err error) auth.Diagnosis {
	var ce *orchestrator.CycleError
	if errors.As(err, &ce) {
		return ce.Diagnosis()
	}
	return auth.Diagnosis{}
}
