package shield

// EntityType identifies the kind of sensitive data a detected span contains.
type EntityType string

// Supported entity types.
const (
	EntitySSN        EntityType = "SSN"
	EntityEmail      EntityType = "EMAIL"
	EntityPhone      EntityType = "PHONE"
	EntityCreditCard EntityType = "CREDIT_CARD"
	EntityIPAddress  EntityType = "IP_ADDRESS"
	EntityAPIKey     EntityType = "API_KEY"
)

// Entity is a detected sensitive span within a text. Start and End are byte
// offsets; End is exclusive.
type Entity struct {
	// Type is the entity classification.
	Type EntityType

	// Start is the byte offset where the span begins.
	Start int

	// End is the byte offset one past the last byte of the span.
	End int
}

// Len returns the span length in bytes.
func (e Entity) Len() int {
	return e.End - e.Start
}

// Action is the policy applied when sensitive data is detected.
type Action string

// Shield policy actions.
const (
	// ActionBlock rejects the request before any downstream component runs.
	ActionBlock Action = "block"

	// ActionRedact replaces each detected span with a type placeholder and
	// forwards the modified text.
	ActionRedact Action = "redact"

	// ActionWarn forwards the unmodified text and records the detection.
	ActionWarn Action = "warn"
)

// ParseAction converts a configuration string into an Action.
// Unknown values default to ActionWarn.
func ParseAction(s string) Action {
	switch s {
	case "block":
		return ActionBlock
	case "redact":
		return ActionRedact
	case "warn":
		return ActionWarn
	default:
		return ActionWarn
	}
}

// Result is the outcome of applying the shield policy to one text.
type Result struct {
	// Blocked is true when the policy is ActionBlock and at least one
	// entity was detected. The request must not reach cache or providers.
	Blocked bool

	// Text is the text to forward downstream. Equal to the input unless the
	// policy is ActionRedact and spans were replaced.
	Text string

	// Findings lists the detected entities after overlap resolution.
	// Placeholders carry only the entity type; the original span text is
	// never retained here.
	Findings []Entity
}

// Detected reports whether any entity was found.
func (r Result) Detected() bool {
	return len(r.Findings) > 0
}

// Types returns the distinct entity types found, for logging. Span contents
// are deliberately not exposed.
func (r Result) Types() []string {
	seen := make(map[EntityType]bool, len(r.Findings))
	var types []string
	for _, f := range r.Findings {
		if !seen[f.Type] {
			seen[f.Type] = true
			types = append(types, string(f.Type))
		}
	}
	return types
}
