package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"cpathways/cprules/pkg/cli"
	"cpathways/cprules/pkg/scenario"
)

var testFlags struct {
	watch  bool
	format string
}

var testCmd = &cobra.Command{
	Use:   "test [suite]",
	Short: "Run rule scenario suites",
	Long: `Run a scenario suite against the rules and report mismatches.

The suite defaults to scenarios.path from the configuration.

Suite Format (YAML):
  tests:
    - name: "decision logic connects to evidence gateway"
      action: connection.create
      context:
        source: {type: "cp:DecisionLogic"}
        target: {type: "cp:EvidenceGateway"}
      expect:
        verdict: allow              # allow, deny, defer
        connection_type: "cp:Connection"

Examples:
  # Run the configured suite
  cprules test

  # Run a specific suite as JSON
  cprules test pathways.yaml --format json

  # Re-run whenever the suite changes
  cprules test pathways.yaml --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTests,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().BoolVarP(&testFlags.watch, "watch", "w", false, "re-run the suite whenever it changes")
	testCmd.Flags().StringVar(&testFlags.format, "format", "text", "output format: text, json, yaml")
}

var errScenarioFailures = errors.New("scenario failures")

func runTests(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(testFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "csv is not supported for scenario reports")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.Scenarios.Path
	if len(args) == 1 {
		path = args[0]
	}

	chain := newChain(&cfg.Rules, quietLogger(cmd.ErrOrStderr()))
	out := cmd.OutOrStdout()

	runOnce := func() error {
		suite, err := scenario.LoadSuite(path)
		if err != nil {
			return cli.NewCommandError("test", err)
		}
		report := scenario.Run(chain, suite)
		if err := printReport(out, format, report); err != nil {
			return err
		}
		if !report.OK() {
			return cli.NewCommandError("test", errScenarioFailures)
		}
		return nil
	}

	if !testFlags.watch {
		return runOnce()
	}
	return watchTests(cmd.Context(), path, cfg.Scenarios.Debounce, out, runOnce)
}

// watchTests runs the suite, then again after every change, until interrupted.
// Failing runs are reported but do not end the watch.
func watchTests(parent context.Context, path string, debounce time.Duration, out io.Writer, runOnce func() error) error {
	ctx, stop := cli.SignalContext(parent)
	defer stop()

	rerun := func() {
		if err := runOnce(); err != nil && !errors.Is(err, errScenarioFailures) {
			fmt.Fprintln(out, err)
		}
		fmt.Fprintf(out, "\nWatching %s for changes (Ctrl+C to stop)\n", path)
	}

	w, err := scenario.NewWatcher(path, debounce, quietLogger(io.Discard))
	if err != nil {
		return cli.NewCommandError("test", err)
	}
	defer w.Stop()

	rerun()
	if err := w.Watch(ctx, rerun); err != nil {
		return cli.NewCommandError("test", err)
	}
	return nil
}

func printReport(w io.Writer, format cli.OutputFormat, report *scenario.Report) error {
	if format != cli.FormatText {
		formatter, err := cli.NewFormatter(format)
		if err != nil {
			return err
		}
		return formatter.FormatTo(w, report)
	}

	for _, res := range report.Results {
		if res.Passed {
			fmt.Fprintf(w, "PASS %s (%.2fms)\n", res.Name, float64(res.Duration.Microseconds())/1000)
			continue
		}
		fmt.Fprintf(w, "FAIL %s\n", res.Name)
		if res.Error != "" {
			fmt.Fprintf(w, "  Error:    %s\n", res.Error)
			continue
		}
		fmt.Fprintf(w, "  Expected: %s\n", res.Expected)
		fmt.Fprintf(w, "  Actual:   %s\n", res.Actual)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d scenarios run, %d passed, %d failed\n", len(report.Results), report.Passed, report.Failed)
	return nil
}
