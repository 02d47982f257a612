package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCaseNumberPattern matches the case references of support mail
const DefaultCaseNumberPattern = `Your case # ([A-Z0-9]+)`

// CaseDetector extracts a case number from email text
type CaseDetector struct {
	regex *regexp.Regexp
}

// NewCaseDetector compiles pattern, or the default pattern when it is
// empty. The first capture group is the case number; without groups the
// whole match is used.
func NewCaseDetector(pattern string) (*CaseDetector, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultCaseNumberPattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid case number pattern: %w", err)
	}
	return &CaseDetector{regex: re}, nil
}

// Pattern returns the compiled expression
func (d *CaseDetector) Pattern() string {
	return d.regex.String()
}

// Detect returns the first case number found in texts, searched in order
func (d *CaseDetector) Detect(texts ...string) (string, bool) {
	for _, text := range texts {
		match := d.regex.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		value := match[0]
		if len(match) > 1 {
			value = match[1]
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, true
		}
	}
	return "", false
}
