package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// policyDocument is the on-disk policy structure. JSON policies decode through
// the same path since JSON is valid YAML.
type policyDocument struct {
	Rules *[]ruleDocument `yaml:"rules"`
}

// ruleDocument uses pointers to tell missing keys from zero values.
type ruleDocument struct {
	ID         *string             `yaml:"id"`
	Priority   *int                `yaml:"priority"`
	Action     *string             `yaml:"action"`
	Reason     *string             `yaml:"reason"`
	Conditions *conditionsDocument `yaml:"conditions"`
}

type conditionsDocument struct {
	FinalConfidenceScore    *string   `yaml:"final_confidence_score"`
	FalsePositiveLikelihood *string   `yaml:"false_positive_likelihood"`
	CorrelationScore        *string   `yaml:"correlation_score"`
	Severity                *[]string `yaml:"severity"`
}

// LoadFile reads and parses the policy file at path.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Cause: err}
	}
	return parse(data, path)
}

// Parse parses a YAML or JSON policy document.
func Parse(data []byte) ([]Rule, error) {
	return parse(data, "")
}

func parse(data []byte, source string) ([]Rule, error) {
	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Source: source, Cause: err}
	}

	loadErr := &LoadError{Source: source}
	if doc.Rules == nil {
		loadErr.add(-1, "", "rules", "required key is missing")
		return nil, loadErr
	}

	rules := make([]Rule, 0, len(*doc.Rules))
	seen := make(map[string]int)

	for i, rd := range *doc.Rules {
		rule, ok := buildRule(i, rd, loadErr)
		if !ok {
			continue
		}
		if prev, dup := seen[rule.ID]; dup {
			loadErr.add(i, rule.ID, "id", "duplicate id, first declared at rules[%d]", prev)
			continue
		}
		seen[rule.ID] = i
		rules = append(rules, rule)
	}

	if len(loadErr.Errors) > 0 {
		return nil, loadErr
	}
	return rules, nil
}

// buildRule converts a decoded rule, recording every problem in loadErr.
func buildRule(index int, rd ruleDocument, loadErr *LoadError) (Rule, bool) {
	before := len(loadErr.Errors)

	rule := Rule{index: index}
	if rd.ID == nil || strings.TrimSpace(*rd.ID) == "" {
		loadErr.add(index, "", "id", "required key is missing")
	} else {
		rule.ID = *rd.ID
	}
	if rd.Priority == nil {
		loadErr.add(index, rule.ID, "priority", "required key is missing")
	} else {
		rule.Priority = *rd.Priority
	}
	if rd.Action == nil || *rd.Action == "" {
		loadErr.add(index, rule.ID, "action", "required key is missing")
	} else {
		rule.Action = *rd.Action
	}
	if rd.Reason == nil {
		loadErr.add(index, rule.ID, "reason", "required key is missing")
	} else {
		rule.Reason = *rd.Reason
	}

	if rd.Conditions == nil {
		loadErr.add(index, rule.ID, "conditions", "required key is missing")
		return rule, false
	}

	cd := rd.Conditions
	rule.Conditions.FinalConfidenceScore = parseCondition(index, rule.ID, "final_confidence_score", cd.FinalConfidenceScore, loadErr)
	rule.Conditions.FalsePositiveLikelihood = parseCondition(index, rule.ID, "false_positive_likelihood", cd.FalsePositiveLikelihood, loadErr)
	rule.Conditions.CorrelationScore = parseCondition(index, rule.ID, "correlation_score", cd.CorrelationScore, loadErr)

	if cd.Severity == nil {
		loadErr.add(index, rule.ID, "conditions.severity", "required key is missing")
	} else {
		rule.Conditions.Severity = make([]string, 0, len(*cd.Severity))
		for _, s := range *cd.Severity {
			rule.Conditions.Severity = append(rule.Conditions.Severity, strings.ToLower(strings.TrimSpace(s)))
		}
	}

	return rule, len(loadErr.Errors) == before
}

func parseCondition(index int, ruleID, name string, raw *string, loadErr *LoadError) Comparator {
	field := "conditions." + name
	if raw == nil {
		loadErr.add(index, ruleID, field, "required key is missing")
		return Comparator{}
	}
	c, err := ParseComparator(*raw)
	if err != nil {
		loadErr.add(index, ruleID, field, "%v", err)
		return Comparator{}
	}
	return c
}

// MustParse is like Parse but panics on error. It simplifies rule sets
// declared in tests and examples.
func MustParse(data string) []Rule {
	rules, err := Parse([]byte(data))
	if err != nil {
		panic(fmt.Sprintf("policy.MustParse: %v", err))
	}
	return rules
}
