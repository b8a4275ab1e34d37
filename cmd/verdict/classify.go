package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mercator-hq/verdict/pkg/cli"
	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/dataset"
	"mercator-hq/verdict/pkg/knowledge"
	"mercator-hq/verdict/pkg/pipeline"
	"mercator-hq/verdict/pkg/report/export"
	"mercator-hq/verdict/pkg/telemetry/tracing"
)

var classifyFlags struct {
	input  string
	rules  string
	mode   string
	format string
	output string
	pretty bool
	quiet  bool
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a dataset and print a compliance report",
	Long: `Classify every record of a dataset against the rule policy and write the
compliance report.

Records are read from CSV (header row) or JSON (array of objects). In full
mode, pairs missing from the knowledge base are resolved by the reasoner and
persisted; in quick mode the reasoner is never called and unknown pairs get
the fallback entry.

Examples:
  # Classify with the configured rules, JSON report on stdout
  verdict classify --input findings.csv

  # Use a specific rule file and write a CSV report
  verdict classify --input findings.csv --rules policy_rules.yaml --format csv -o report.csv

  # Quick mode, no reasoner calls
  verdict classify --input findings.json --mode quick`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVarP(&classifyFlags.input, "input", "i", "", "dataset file (.csv or .json)")
	classifyCmd.Flags().StringVarP(&classifyFlags.rules, "rules", "r", "", "rule policy file (overrides policy config)")
	classifyCmd.Flags().StringVarP(&classifyFlags.mode, "mode", "m", "", "resolution mode: full, quick (default from config)")
	classifyCmd.Flags().StringVarP(&classifyFlags.format, "format", "f", "", "report format: json, csv (default from config)")
	classifyCmd.Flags().StringVarP(&classifyFlags.output, "output", "o", "", "report file (default stdout)")
	classifyCmd.Flags().BoolVar(&classifyFlags.pretty, "pretty", false, "indent JSON output")
	classifyCmd.Flags().BoolVarP(&classifyFlags.quiet, "quiet", "q", false, "do not print stage progress")
}

func runClassify(cmd *cobra.Command, args []string) error {
	if classifyFlags.input == "" {
		return cli.NewConfigError("input", "--input is required")
	}

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := commandContext(cmd)
	cfg := env.cfg

	mode := cfg.Pipeline.Mode
	if classifyFlags.mode != "" {
		mode = classifyFlags.mode
	}
	runMode, err := knowledge.ParseMode(mode)
	if err != nil {
		return cli.NewConfigError("mode", err.Error())
	}

	format := cfg.Pipeline.OutputFormat
	if classifyFlags.format != "" {
		format = classifyFlags.format
	}
	exporter, err := export.New(format, classifyFlags.pretty || cfg.Pipeline.Pretty)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	records, err := dataset.ReadFile(classifyFlags.input)
	if err != nil {
		return cli.NewCommandError("classify", err)
	}

	holder, err := env.loadRules(ctx, classifyFlags.rules)
	if err != nil {
		return err
	}

	kb, err := env.openKnowledgeBase(ctx)
	if err != nil {
		return err
	}
	defer kb.Close()

	opts := []pipeline.Option{
		pipeline.WithLogger(env.logger),
		pipeline.WithTracer(env.tracer.Provider().Tracer(tracing.InstrumentationName)),
		pipeline.WithObserver(pipeline.NewLoggingObserver(env.logger)),
		pipeline.WithObserver(pipeline.NewMetricsObserver(env.metrics)),
	}
	if !classifyFlags.quiet {
		opts = append(opts, pipeline.WithObserver(cli.NewStageProgress(os.Stderr)))
	}

	p, err := pipeline.New(holder, kb, opts...)
	if err != nil {
		return cli.NewCommandError("classify", err)
	}

	res, err := p.Run(ctx, records, runMode)
	if err != nil {
		return cli.NewCommandError("classify", err)
	}

	if err := writeReport(exporter, &res.Report, classifyFlags.output); err != nil {
		return cli.NewCommandError("classify", err)
	}
	return nil
}

// writeReport exports rep to path, or to stdout when path is empty or "-".
// Files are written through a temporary file and renamed into place.
func writeReport(exporter export.Exporter, rep *compliance.Report, path string) error {
	if path == "" || path == "-" {
		return exporter.Export(rep, os.Stdout)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".verdict-report-*")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := exporter.Export(rep, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to export report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
