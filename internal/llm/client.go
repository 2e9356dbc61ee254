// Package llm defines the language-model boundary: a small completion
// interface, an OpenAI-backed implementation and a stub for offline use.
package llm

import "context"

// Chat roles accepted on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single bounded model call.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Client produces a raw text completion. Implementations must respect
// context cancellation; a slow provider must not stall the caller forever.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
