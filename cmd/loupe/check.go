package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jward/loupe"
	"github.com/jward/loupe/internal/rulescript"
	"github.com/jward/loupe/internal/store"
	"github.com/spf13/cobra"
)

var (
	flagDB       string
	flagRules    string
	flagBaseline string
	flagMaxBytes int
	flagWorkers  int
	flagNoHints  bool
)

var checkCmd = &cobra.Command{
	Use:   "check <file> [files...]",
	Short: "Run diagnostics over hook script files",
	Long:  "Analyzes each file and reports diagnostics. With --db, unchanged files are served from the results cache; with --baseline, findings already present in the baseline database are dropped.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagDB, "db", "", "results cache database path")
	checkCmd.Flags().StringVar(&flagRules, "rules", "", "directory of custom rule scripts (.risor)")
	checkCmd.Flags().StringVar(&flagBaseline, "baseline", "", "baseline database path; only new findings are reported")
	checkCmd.Flags().IntVar(&flagMaxBytes, "max-bytes", 0, "script size ceiling in bytes (0 = engine default)")
	checkCmd.Flags().IntVar(&flagWorkers, "workers", 0, "analysis worker count (0 = number of CPUs)")
	checkCmd.Flags().BoolVar(&flagNoHints, "no-hints", false, "drop hint-severity findings")
}

func runCheck(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	eng, err := buildEngine()
	if err != nil {
		return outputError("check", err)
	}

	var checkerOpts []loupe.CheckerOption
	if flagDB != "" {
		cache, err := store.Open(flagDB)
		if err != nil {
			return outputError("check", fmt.Errorf("opening cache: %w", err))
		}
		defer cache.Close()
		checkerOpts = append(checkerOpts, loupe.WithCache(cache))
	}
	if flagBaseline != "" {
		baseline, err := store.Open(flagBaseline)
		if err != nil {
			return outputError("check", fmt.Errorf("opening baseline: %w", err))
		}
		defer baseline.Close()
		checkerOpts = append(checkerOpts, loupe.WithBaseline(baseline))
	}
	if flagWorkers > 0 {
		checkerOpts = append(checkerOpts, loupe.WithWorkers(flagWorkers))
	}

	checker := eng.NewChecker(loupe.Request{Hook: flagHook, Mode: flagMode}, checkerOpts...)
	reports, err := checker.CheckFiles(context.Background(), args)
	if err != nil {
		return outputError("check", err)
	}

	out := make([]CLIFileReport, len(reports))
	errorCount := 0
	for i, r := range reports {
		out[i] = reportToCLI(r)
		for _, f := range out[i].Findings {
			if f.Severity == "error" {
				errorCount++
			}
		}
	}

	if err := outputResult(CLIResult{Command: "check", Results: out}); err != nil {
		return err
	}
	logger.Info("check finished",
		"files", len(reports),
		"errors", errorCount,
		"duration", time.Since(start).Round(time.Millisecond))

	if errorCount > 0 {
		errorHandled = true
		return fmt.Errorf("%d error(s) found", errorCount)
	}
	return nil
}

// buildEngine assembles engine options from the shared flags.
func buildEngine() (*loupe.Engine, error) {
	var opts []loupe.Option
	if flagMaxBytes > 0 {
		opts = append(opts, loupe.WithMaxScriptBytes(flagMaxBytes))
	}
	if flagNoHints {
		opts = append(opts, loupe.WithHints(false))
	}
	if flagRules != "" {
		rules, err := rulescript.Load(flagRules)
		if err != nil {
			return nil, fmt.Errorf("loading rule scripts: %w", err)
		}
		opts = append(opts, loupe.WithRuleScripts(rules))
	}
	eng, err := loupe.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return eng, nil
}

func reportToCLI(r loupe.FileReport) CLIFileReport {
	findings := make([]CLIFinding, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		start := r.Doc.OffsetToPosition(d.Range.Start)
		end := r.Doc.OffsetToPosition(d.Range.End)
		findings[i] = CLIFinding{
			File:     r.Path,
			Line:     start.Line,
			Col:      start.Column,
			EndLine:  end.Line,
			EndCol:   end.Column,
			Severity: d.Severity.String(),
			Code:     d.Code,
			Source:   d.Source,
			Message:  d.Message,
		}
	}
	return CLIFileReport{File: r.Path, Cached: r.Cached, Findings: findings}
}
