package logging

import "regexp"

// redactionMark replaces every matched secret or PII value.
const redactionMark = "[REDACTED]"

// Redactor scrubs known secret and PII shapes from log strings.
// Patterns compile once at construction.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor covering API keys, bearer tokens,
// emails, SSNs, credit card numbers, and phone numbers.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`sk-[a-zA-Z0-9]+`),
			regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]+`),
			regexp.MustCompile(`(?i)api[-_]?key[=:\s]+[a-zA-Z0-9._\-]+`),
			regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
			regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		},
	}
}

// Redact replaces every match in s with the redaction mark.
func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, redactionMark)
	}
	return s
}
