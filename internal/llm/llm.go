package llm

import "context"

type Message struct {
	Role    string
	Content string
}

// Completion summarizes a finished streamed answer.
type Completion struct {
	Model        string
	Text         string
	InputTokens  int64
	OutputTokens int64
}

type Provider interface {
	ChatStream(ctx context.Context, messages []Message, onToken func(string)) (*Completion, error)
}
