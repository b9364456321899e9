// Package pii redacts personally identifiable information from compressed
// output before it leaves the process.
package pii

import (
	"fmt"
	"regexp"
	"sort"
)

// Pattern pairs a named PII category with the regexp that detects it and the
// token substituted for each match.
type Pattern struct {
	Name        string
	Regexp      *regexp.Regexp
	Replacement string
}

// Match records a single detection without exposing the matched text.
type Match struct {
	Pattern string
	Start   int
	End     int
}

// Scrubber applies an ordered set of redaction patterns to text.
type Scrubber struct {
	patterns []Pattern
}

// NewScrubber returns a scrubber loaded with the default pattern set:
// social security numbers, email addresses, phone numbers, and credit
// card numbers.
func NewScrubber() *Scrubber {
	return &Scrubber{patterns: defaultPatterns()}
}

func defaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "ssn",
			Regexp:      regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Replacement: "[REDACTED-SSN]",
		},
		{
			Name:        "email",
			Regexp:      regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Replacement: "[REDACTED-EMAIL]",
		},
		{
			Name:        "phone",
			Regexp:      regexp.MustCompile(`(?:\+?1[-. ]?)?\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`),
			Replacement: "[REDACTED-PHONE]",
		},
		{
			Name:        "credit_card",
			Regexp:      regexp.MustCompile(`\b\d(?:[ -]?\d){12,15}\b`),
			Replacement: "[REDACTED-CARD]",
		},
	}
}

// AddPattern registers a custom pattern. It is applied after the defaults.
func (s *Scrubber) AddPattern(name, expr, replacement string) error {
	if name == "" {
		return fmt.Errorf("pattern name cannot be empty")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", name, err)
	}
	s.patterns = append(s.patterns, Pattern{Name: name, Regexp: re, Replacement: replacement})
	return nil
}

// Scrub replaces every match of every pattern with its replacement token.
// Patterns are applied in registration order, so earlier patterns win on
// overlapping regions.
func (s *Scrubber) Scrub(text string) string {
	for _, p := range s.patterns {
		text = p.Regexp.ReplaceAllString(text, p.Replacement)
	}
	return text
}

// Detect reports all matches without modifying the text, ordered by offset.
func (s *Scrubber) Detect(text string) []Match {
	var matches []Match
	for _, p := range s.patterns {
		for _, loc := range p.Regexp.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{Pattern: p.Name, Start: loc[0], End: loc[1]})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End < matches[j].End
	})
	return matches
}
