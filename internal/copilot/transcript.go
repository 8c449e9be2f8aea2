package copilot

import (
	"log/slog"
	"strings"

	"dcc/internal/stream"
)

// Turn statuses recorded for a finished stream.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// Transcript assembles the answer of one stream. It forwards every event to
// Next, when set, after recording it.
type Transcript struct {
	Next stream.Handler

	Steps    []TraceStep
	Evidence []EvidenceReveal
	Final    *FinalSummary
	Err      *ErrorInfo

	answer strings.Builder
	events int
}

func (t *Transcript) HandleEvent(ev stream.Event) error {
	t.events++

	p, err := DecodePayload(ev)
	if err != nil {
		slog.Debug("copilot: payload not understood", "type", ev.Type, "error", err)
	} else {
		switch p := p.(type) {
		case TraceStep:
			t.Steps = append(t.Steps, p)
		case MessageChunk:
			t.answer.WriteString(p.Text)
		case EvidenceReveal:
			t.Evidence = append(t.Evidence, p)
		case FinalSummary:
			t.Final = &p
		case ErrorInfo:
			t.Err = &p
		}
	}

	if t.Next != nil {
		return t.Next.HandleEvent(ev)
	}
	return nil
}

// Answer returns the message chunks joined in arrival order. When no chunk
// arrived it falls back to the final summary's answer.
func (t *Transcript) Answer() string {
	if t.answer.Len() == 0 && t.Final != nil {
		return t.Final.Answer
	}
	return t.answer.String()
}

func (t *Transcript) Events() int { return t.events }

// Status reports how the stream ended. A stream without a final event but
// without an error is complete too; final is optional on the wire.
func (t *Transcript) Status() string {
	switch {
	case t.Err != nil && t.answer.Len() > 0:
		return StatusPartial
	case t.Err != nil:
		return StatusFailed
	}
	return StatusComplete
}
