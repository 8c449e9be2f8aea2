package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"dcc/internal/copilot"
	"dcc/internal/llm"
	"dcc/internal/stream"
)

// Responder produces the events answering one question. emit fails once the
// client has gone away; a Responder should stop at the first failure.
type Responder interface {
	Name() string
	Respond(ctx context.Context, req copilot.ChatRequest, emit func(stream.Event) error) error
}

// ReplayResponder answers every question with a recorded NDJSON transcript.
type ReplayResponder struct {
	path  string
	delay time.Duration
}

// NewReplayResponder serves the transcript at path, pausing delay between
// events to mimic a live backend.
func NewReplayResponder(path string, delay time.Duration) *ReplayResponder {
	return &ReplayResponder{path: path, delay: delay}
}

func (r *ReplayResponder) Name() string { return "replay" }

func (r *ReplayResponder) Respond(ctx context.Context, req copilot.ChatRequest, emit func(stream.Event) error) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	d := stream.NewDecoder(stream.HandlerFunc(func(ev stream.Event) error {
		if r.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay):
			}
		}
		return emit(ev)
	}))
	if err := d.Decode(f); err != nil {
		return err
	}
	if st := d.Stats(); st.Discarded() > 0 || st.TailBytes > 0 {
		slog.Warn("gateway: transcript has unusable lines", "path", r.path, "discarded", st.Discarded(), "tail_bytes", st.TailBytes)
	}
	return nil
}

const defaultSystemPrompt = "You are the review copilot of a procurement and HR decision desk. " +
	"Answer questions about cases concisely and cite the policy that applies."

// LLMResponder answers with a language model, as trace steps, streamed
// message chunks and a final summary.
type LLMResponder struct {
	provider     llm.Provider
	systemPrompt string
}

func NewLLMResponder(provider llm.Provider, systemPrompt string) *LLMResponder {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &LLMResponder{provider: provider, systemPrompt: systemPrompt}
}

func (l *LLMResponder) Name() string { return "llm" }

func (l *LLMResponder) Respond(ctx context.Context, req copilot.ChatRequest, emit func(stream.Event) error) error {
	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: "developer", Content: l.systemPrompt})
	for _, t := range req.History {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: copilot.RoleUser, Content: req.Query})

	if err := emit(event(stream.KindTrace, map[string]string{"step": "generate_answer", "status": "running"})); err != nil {
		return err
	}

	var emitErr error
	completion, err := l.provider.ChatStream(ctx, messages, func(token string) {
		if emitErr != nil {
			return
		}
		emitErr = emit(event(stream.KindMessageChunk, map[string]string{"content": token}))
	})
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		if emitErr := emit(stream.ErrorEvent(err.Error())); emitErr != nil {
			return emitErr
		}
		return err
	}

	if err := emit(event(stream.KindTrace, map[string]string{"step": "generate_answer", "status": "done"})); err != nil {
		return err
	}
	return emit(event(stream.KindFinal, map[string]any{
		"answer":        completion.Text,
		"model":         completion.Model,
		"input_tokens":  completion.InputTokens,
		"output_tokens": completion.OutputTokens,
	}))
}

func event(kind stream.Kind, data any) stream.Event {
	raw, _ := json.Marshal(data)
	return stream.Event{Type: kind, Data: raw}
}
