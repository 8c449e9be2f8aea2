package stream

import "encoding/json"

type Kind string

const (
	KindTrace          Kind = "trace"
	KindMessageChunk   Kind = "message_chunk"
	KindEvidenceReveal Kind = "evidence_reveal"
	KindFinal          Kind = "final"
	KindError          Kind = "error"
)

// Valid reports whether k belongs to the closed set of event kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTrace, KindMessageChunk, KindEvidenceReveal, KindFinal, KindError:
		return true
	}
	return false
}

// Event is one decoded line of the copilot stream. Data is kept exactly as
// it appeared on the wire; it is nil when the line carried no data field.
type Event struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Messages carried by locally produced error events.
const (
	MsgConnectionFailed  = "Connection failed"
	MsgStreamInterrupted = "Stream interrupted"
)

// ErrorEvent builds an error event that never came over the wire.
func ErrorEvent(message string) Event {
	data, _ := json.Marshal(struct {
		Message string `json:"message"`
	}{message})
	return Event{Type: KindError, Data: data}
}

type Handler interface {
	HandleEvent(Event) error
}

type HandlerFunc func(Event) error

func (f HandlerFunc) HandleEvent(ev Event) error {
	return f(ev)
}
