package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/verdict/pkg/cli"
	"mercator-hq/verdict/pkg/policy"
)

var rulesLintFlags struct {
	file   string
	format string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with rule policies",
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a rule policy and print its evaluation order",
	Long: `Validate a rule policy file and print the rules in the order they are
evaluated: ascending priority, ties broken by declaration order. The first
matching rule decides a record's action and reason.

Every problem in the file is reported at once with the offending rule.

Examples:
  # Lint the default policy file
  verdict rules lint

  # Lint a specific file, JSON output for CI
  verdict rules lint --file policies/prod.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesLintCmd)

	rulesLintCmd.Flags().StringVarP(&rulesLintFlags.file, "file", "f", "policy_rules.yaml", "rule policy file")
	rulesLintCmd.Flags().StringVar(&rulesLintFlags.format, "format", "text", "output format: text, json, csv")
}

// lintResult is the outcome of linting one policy file.
type lintResult struct {
	File    string     `json:"file"`
	Version string     `json:"version"`
	Rules   []ruleView `json:"rules"`
}

type ruleView struct {
	Order                   int      `json:"order"`
	ID                      string   `json:"id"`
	Priority                int      `json:"priority"`
	Action                  string   `json:"action"`
	Reason                  string   `json:"reason"`
	FinalConfidenceScore    string   `json:"final_confidence_score"`
	FalsePositiveLikelihood string   `json:"false_positive_likelihood"`
	CorrelationScore        string   `json:"correlation_score"`
	Severity                []string `json:"severity"`
}

func (r lintResult) Header() []string {
	return []string{"ORDER", "ID", "PRIORITY", "ACTION", "REASON", "CONFIDENCE", "FALSE POSITIVE", "CORRELATION", "SEVERITY"}
}

func (r lintResult) Rows() [][]string {
	rows := make([][]string, 0, len(r.Rules))
	for _, v := range r.Rules {
		rows = append(rows, []string{
			strconv.Itoa(v.Order),
			v.ID,
			strconv.Itoa(v.Priority),
			v.Action,
			v.Reason,
			v.FinalConfidenceScore,
			v.FalsePositiveLikelihood,
			v.CorrelationScore,
			strings.Join(v.Severity, ","),
		})
	}
	return rows
}

func newLintResult(file string, engine *policy.Engine) lintResult {
	res := lintResult{File: file, Version: engine.Version()}
	for i, rule := range engine.Rules() {
		res.Rules = append(res.Rules, ruleView{
			Order:                   i + 1,
			ID:                      rule.ID,
			Priority:                rule.Priority,
			Action:                  rule.Action,
			Reason:                  rule.Reason,
			FinalConfidenceScore:    rule.Conditions.FinalConfidenceScore.String(),
			FalsePositiveLikelihood: rule.Conditions.FalsePositiveLikelihood.String(),
			CorrelationScore:        rule.Conditions.CorrelationScore.String(),
			Severity:                rule.Conditions.Severity,
		})
	}
	return res
}

func lintRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(rulesLintFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	rules, err := policy.LoadFile(rulesLintFlags.file)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}
	res := newLintResult(rulesLintFlags.file, policy.NewEngine(rules))

	if format == cli.FormatText {
		fmt.Printf("✓ %s: %d rules (version %s)\n\n", res.File, len(res.Rules), shortVersion(res.Version))
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, res)
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}
