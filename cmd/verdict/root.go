package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/verdict/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

const defaultConfigFile = "verdict.yaml"

var rootCmd = &cobra.Command{
	Use:   "verdict",
	Short: "Verdict - rule-driven compliance classification",
	Long: `Verdict turns a dataset of findings into a compliance report.

Each record is matched against a prioritized rule policy. The distinct
(action, reason) outcomes are resolved to compliance metadata through a
persistent knowledge base, asking an LLM reasoner only for pairs it has
never seen. Every record is then classified as Compliant, Non-Compliant or
Requires Action and summarized.

Configuration is read from verdict.yaml when present and may be overridden
with VERDICT_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
