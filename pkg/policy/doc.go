// Package policy implements the rule engine of the classification pipeline.
//
// A policy is an ordered list of rules. Each rule carries a priority (lower
// values are evaluated first), three single-sided numeric comparators and a
// set of allowed severities:
//
//	rules:
//	  - id: r1
//	    priority: 1
//	    action: deny
//	    reason: high risk
//	    conditions:
//	      final_confidence_score: ">=0.9"
//	      false_positive_likelihood: "<0.1"
//	      correlation_score: ">=0.5"
//	      severity: [high, critical]
//
// Rules are sorted once by (priority, declaration index) with a stable sort.
// For each record the first rule whose four conditions hold decides the
// record's action and reason. Records matched by no rule get the default
// outcome (allow, "No matching rule found - default allow", default).
//
// Malformed policies are rejected by Parse and LoadFile with a *LoadError
// listing every problem found, so a pipeline never starts with a rule set it
// cannot evaluate.
package policy
