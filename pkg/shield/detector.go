package shield

import "regexp"

// Detector finds sensitive spans in text. The recognition model is an
// external collaborator; the shield consumes only this span contract.
type Detector interface {
	// Detect returns the sensitive spans found in text. Spans may overlap;
	// the shield resolves overlaps before acting on them. Empty input must
	// return no spans, never an error.
	Detect(text string) []Entity
}

// rule pairs a compiled pattern with the entity type it detects and an
// optional post-match validator.
type rule struct {
	entityType EntityType
	regex      *regexp.Regexp
	validate   func(match string) bool
}

// RegexDetector is the built-in Detector based on compiled patterns for
// common structured PII. Patterns compile once at construction, not per scan.
type RegexDetector struct {
	rules []rule
}

// NewRegexDetector creates a detector covering SSNs, email addresses, phone
// numbers, credit card numbers, IPv4 addresses, and API keys.
func NewRegexDetector() *RegexDetector {
	return &RegexDetector{
		rules: []rule{
			{
				entityType: EntitySSN,
				regex:      regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			},
			{
				entityType: EntityEmail,
				regex:      regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			},
			{
				entityType: EntityPhone,
				regex:      regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
			},
			{
				entityType: EntityCreditCard,
				regex:      regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
				validate:   luhnValid,
			},
			{
				entityType: EntityIPAddress,
				regex:      regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
			},
			{
				entityType: EntityAPIKey,
				regex:      regexp.MustCompile(`\bsk-[a-zA-Z0-9]{16,}\b`),
			},
		},
	}
}

// Detect returns all raw matches across rules. Overlapping spans from
// different rules are returned as-is; resolveOverlaps handles them.
func (d *RegexDetector) Detect(text string) []Entity {
	if text == "" {
		return nil
	}

	var entities []Entity
	for _, r := range d.rules {
		for _, loc := range r.regex.FindAllStringIndex(text, -1) {
			if r.validate != nil && !r.validate(text[loc[0]:loc[1]]) {
				continue
			}
			entities = append(entities, Entity{
				Type:  r.entityType,
				Start: loc[0],
				End:   loc[1],
			})
		}
	}
	return entities
}

// luhnValid reports whether the digits in match pass the Luhn checksum.
// Filters out arbitrary digit runs the credit card pattern would otherwise
// flag.
func luhnValid(match string) bool {
	var digits []int
	for _, c := range match {
		if c >= '0' && c <= '9' {
			digits = append(digits, int(c-'0'))
		}
	}
	if len(digits) < 13 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
