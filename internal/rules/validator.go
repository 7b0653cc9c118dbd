package rules

import (
	"fmt"
	"strings"
)

// ValidateRule checks a rule before it is written to the store. Field
// patterns are literal label strings, so there is nothing to compile; the
// checks only reject empty keys and labels that could never match.
func ValidateRule(rule Rule) error {
	if strings.TrimSpace(rule.SourcePattern) == "" {
		return fmt.Errorf("source_pattern is required")
	}
	if strings.TrimSpace(rule.TargetBot) == "" {
		return fmt.Errorf("target_bot is required")
	}
	if strings.TrimSpace(rule.OutputTemplate) == "" {
		return fmt.Errorf("output_template is required")
	}

	for name, label := range rule.FieldPatterns {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("field name must not be empty")
		}
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("field %q: label must not be empty", name)
		}
	}

	return nil
}
