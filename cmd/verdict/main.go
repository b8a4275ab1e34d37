// Verdict classifies findings against compliance rules and produces a
// compliance report.
//
// Each record of an input dataset is matched against a prioritized rule
// policy, the distinct (action, reason) outcomes are resolved through a
// persistent knowledge base backed by an LLM reasoner, and every record is
// classified as Compliant, Non-Compliant or Requires Action.
//
// Usage:
//
//	# Classify a dataset with the configured rules
//	verdict classify --input findings.csv
//
//	# Quick mode: never call the reasoner
//	verdict classify --input findings.csv --mode quick --format csv -o report.csv
//
//	# Validate a rule policy and show its evaluation order
//	verdict rules lint --file policy_rules.yaml
//
//	# Inspect the knowledge base
//	verdict kb stats
//	verdict kb search "access control"
//
//	# Run scheduled classification with metrics and hot reload
//	verdict schedule --config verdict.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
