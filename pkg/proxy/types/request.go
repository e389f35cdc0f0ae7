package types

import "fmt"

// ChatMessage is a single conversation turn in an inbound request.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Name optionally identifies the author of the message.
	Name string `json:"name,omitempty"`
}

// ChatCompletionRequest is the inbound wire format for POST /v1/chat/completions.
// Optional numeric parameters use pointers so that "absent" and "zero" are
// distinguishable after JSON decoding.
type ChatCompletionRequest struct {
	// Model is the requested model name. Required.
	Model string `json:"model"`

	// Messages is the conversation history. Must be non-empty.
	Messages []ChatMessage `json:"messages"`

	// Temperature controls sampling randomness. Valid range [0, 2].
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens caps the completion length. Must be >= 1 when set.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP is the nucleus sampling parameter. Valid range [0, 1].
	TopP *float64 `json:"top_p,omitempty"`

	// Stream requests a Server-Sent Events response when true.
	Stream bool `json:"stream,omitempty"`

	// Stop lists up to 4 sequences that end generation.
	Stop []string `json:"stop,omitempty"`

	// Provider optionally pins the request to a named upstream provider.
	Provider string `json:"provider,omitempty"`

	// User is an opaque end-user identifier for abuse tracking.
	User string `json:"user,omitempty"`
}

// ValidationError describes a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Message)
}

// Validate checks required fields and parameter ranges. It returns a
// *ValidationError describing the first violation found, or nil.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}

	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "messages must not be empty"}
	}

	for i, msg := range r.Messages {
		switch msg.Role {
		case "system", "user", "assistant":
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unknown role %q", msg.Role),
			}
		}
	}

	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return &ValidationError{Field: "temperature", Message: "must be between 0 and 2"}
	}

	if r.TopP != nil && (*r.TopP < 0 || *r.TopP > 1) {
		return &ValidationError{Field: "top_p", Message: "must be between 0 and 1"}
	}

	if r.MaxTokens != nil && *r.MaxTokens < 1 {
		return &ValidationError{Field: "max_tokens", Message: "must be at least 1"}
	}

	if len(r.Stop) > 4 {
		return &ValidationError{Field: "stop", Message: "at most 4 stop sequences allowed"}
	}

	return nil
}
