/*
Package cli provides the output, error and process helpers shared by the
cprules commands.

Output Formatting:

Results can be printed as a text table, JSON, YAML or CSV. Values that
implement Table are rendered as aligned columns in text mode and as rows in
CSV mode; anything else is printed with %v or encoded as a document:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Progress Reporting:

For batch evaluation, use the progress reporter:

	progress := cli.NewProgressReporter(os.Stderr, "evaluating")
	progress.Start(int64(len(requests)))
	for i := range requests {
		// Evaluate
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
