// Package rules defines the declarative extraction rule model.
//
// A rule set is loaded once at startup, validated, and shared read-only across
// all extraction calls. Each rule names an output field and the method used to
// fill it: a key/value scan over the body, a regular expression capture, or a
// plain header lookup.
package rules

import (
	"fmt"
	"strings"
)

// Method selects the extraction strategy for a rule.
type Method string

const (
	MethodKeyValue Method = "key_value"
	MethodRegex    Method = "regex_pattern"
	MethodHeader   Method = "header"
)

// Rule describes how one output field is extracted from a message.
// Only the parameters for the rule's method are consulted; the rest are ignored.
type Rule struct {
	// OutputField is the column name the extracted value is stored under.
	// It must be non-empty and unique within a set.
	OutputField string `yaml:"output_field"`
	Method      Method `yaml:"method"`

	// key_value: candidate labels tried as alternatives, and the delimiter
	// between label and value. The delimiter may be a literal character
	// (":") or a prebuilt regular expression fragment (`\s*[:\-\#]\s*`);
	// a leading \s token or any regex metacharacter marks it as the latter.
	KeyPatterns []string `yaml:"key_patterns,omitempty"`
	Delimiter   string   `yaml:"delimiter,omitempty"`

	// regex_pattern: a regular expression with at least one capture group.
	Pattern string `yaml:"pattern,omitempty"`

	// header: the header name to copy verbatim.
	HeaderName string `yaml:"header_name,omitempty"`
}

// Set is an ordered, immutable collection of rules.
type Set struct {
	rules []Rule
}

// NewSet validates the rule list and returns an immutable set.
// It fails fast on empty or duplicate output field names; a rule missing its
// method-specific parameters is accepted and simply never extracts anything.
func NewSet(list []Rule) (Set, error) {
	seen := make(map[string]int, len(list))
	for i, r := range list {
		name := strings.TrimSpace(r.OutputField)
		if name == "" {
			return Set{}, fmt.Errorf("rule %d: output_field must not be empty", i)
		}
		if prev, ok := seen[name]; ok {
			return Set{}, fmt.Errorf("rule %d: output_field %q already used by rule %d", i, name, prev)
		}
		seen[name] = i
	}

	rules := make([]Rule, len(list))
	copy(rules, list)
	return Set{rules: rules}, nil
}

// Rules returns the rules in declared order. Callers must not modify the slice.
func (s Set) Rules() []Rule {
	return s.rules
}

// Len returns the number of rules in the set.
func (s Set) Len() int {
	return len(s.rules)
}

// OutputFields returns the declared output field names in rule order. This is
// the column order contributed by the rule set to the sheet header.
func (s Set) OutputFields() []string {
	fields := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		fields = append(fields, r.OutputField)
	}
	return fields
}

// Default returns the built-in rule set used when no rule file is configured:
// labeled order fields plus a date capture.
func Default() Set {
	set, err := NewSet([]Rule{
		{
			OutputField: "Order Status",
			Method:      MethodKeyValue,
			KeyPatterns: []string{"Status", "Order Status", "State"},
			Delimiter:   `\s*[:\-\#]\s*`,
		},
		{
			OutputField: "Total Amount",
			Method:      MethodKeyValue,
			KeyPatterns: []string{"Total", "Total Amount", "Total Amount Due", "Invoice Total"},
			Delimiter:   `\s*[:\-\#]\s*`,
		},
		{
			OutputField: "Shipping Method",
			Method:      MethodKeyValue,
			KeyPatterns: []string{"Shipping Method", "Ship Method"},
			Delimiter:   `\s*[:\-\#]\s*`,
		},
		{
			OutputField: "Order ID",
			Method:      MethodKeyValue,
			KeyPatterns: []string{"Order ID", "Order-ID"},
			Delimiter:   `\s*[:\-\#]\s*`,
		},
		{
			OutputField: "Invoice Date",
			Method:      MethodRegex,
			Pattern:     `Date\s*:\s*(\d{4}[-/]\d{2}[-/]\d{2}|\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`,
		},
	})
	if err != nil {
		// The built-in set is fixed at compile time; a validation failure
		// here is a programming error.
		panic(err)
	}
	return set
}
