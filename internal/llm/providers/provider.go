package providers

import "context"

// Message is one chat turn sent to a completion provider.
type Message struct {
	Role    string
	Content string
}

// Provider abstracts a text-completion backend. Chat returns the raw
// response text; callers treat it as opaque.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}
