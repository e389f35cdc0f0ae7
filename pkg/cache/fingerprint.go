package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"sentinel-hq/sentinel/pkg/providers"
)

// fingerprintPayload is the canonical form hashed into a fingerprint.
// It contains exactly the fields that determine the response: the model,
// the ordered messages, and the sampling parameters. Correlation IDs,
// the stream flag, and internal metadata are deliberately absent, so a
// streaming and non-streaming request for the same completion share a
// fingerprint.
type fingerprintPayload struct {
	Model       string               `json:"model"`
	Messages    []fingerprintMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	TopP        float64              `json:"top_p"`
	Stop        []string             `json:"stop,omitempty"`
}

type fingerprintMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Fingerprint computes the deterministic digest identifying a logically
// equivalent request. Equal model, message sequence, and sampling
// parameters always produce equal fingerprints; message order is
// significant. Struct marshaling fixes the key order, so the caller's
// JSON key order never leaks into the digest.
func Fingerprint(req *providers.CompletionRequest) string {
	payload := fingerprintPayload{
		Model:       req.Model,
		Messages:    make([]fingerprintMessage, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	for i, msg := range req.Messages {
		payload.Messages[i] = fingerprintMessage{Role: msg.Role, Content: msg.Content}
	}

	// Marshal of a flat struct without maps cannot fail.
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return "llm:" + hex.EncodeToString(sum[:])
}
