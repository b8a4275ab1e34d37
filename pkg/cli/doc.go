/*
Package cli provides command-line utilities for the verdict command.

Output Formatting:

Command results can be printed as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, stats); err != nil {
		return err
	}

Values implementing Tabular are printed as aligned columns in text format
and as rows in CSV format.

Progress Reporting:

StageProgress prints one line per finished pipeline stage:

	p := pipeline.New(rules, kb, pipeline.WithObserver(cli.NewStageProgress(os.Stderr)))

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
