package copilot

import (
	"encoding/json"
	"testing"

	"dcc/internal/stream"

	"github.com/google/go-cmp/cmp"
)

func TestDecodePayload(t *testing.T) {
	finalData := `{"decision":"REJECT","score":0.4,"summary":"Split PO detected."}`

	tests := []struct {
		name string
		ev   stream.Event
		want any
	}{
		{
			name: "trace object",
			ev:   stream.Event{Type: stream.KindTrace, Data: json.RawMessage(`{"step":"rules","status":"running","detail":"3 rules"}`)},
			want: TraceStep{Step: "rules", Status: "running", Detail: "3 rules"},
		},
		{
			name: "trace string",
			ev:   stream.Event{Type: stream.KindTrace, Data: json.RawMessage(`"Searching policy"`)},
			want: TraceStep{Step: "Searching policy"},
		},
		{
			name: "message chunk string",
			ev:   stream.Event{Type: stream.KindMessageChunk, Data: json.RawMessage(`"Hello"`)},
			want: MessageChunk{Text: "Hello"},
		},
		{
			name: "message chunk delta",
			ev:   stream.Event{Type: stream.KindMessageChunk, Data: json.RawMessage(`{"delta":"lo"}`)},
			want: MessageChunk{Text: "lo"},
		},
		{
			name: "message chunk without data",
			ev:   stream.Event{Type: stream.KindMessageChunk},
			want: MessageChunk{},
		},
		{
			name: "evidence snake case",
			ev: stream.Event{Type: stream.KindEvidenceReveal, Data: json.RawMessage(
				`{"evidence_id":"ev_002","doc_id":"proc-2024.pdf","doc_title":"Procurement Policy","page":45,"snippet":"Split PO...","score":0.85,"match_type":"SEMANTIC"}`)},
			want: EvidenceReveal{ID: "ev_002", DocID: "proc-2024.pdf", DocTitle: "Procurement Policy", Page: 45, Content: "Split PO...", Score: 0.85, MatchType: "SEMANTIC"},
		},
		{
			name: "final",
			ev:   stream.Event{Type: stream.KindFinal, Data: json.RawMessage(finalData)},
			want: FinalSummary{Recommendation: "REJECT", Confidence: 0.4, Answer: "Split PO detected.", Raw: json.RawMessage(finalData)},
		},
		{
			name: "error",
			ev:   stream.ErrorEvent(stream.MsgConnectionFailed),
			want: ErrorInfo{Message: stream.MsgConnectionFailed},
		},
		{
			name: "error with null message falls back",
			ev:   stream.Event{Type: stream.KindError, Data: json.RawMessage(`{"message":null,"error":"quota"}`)},
			want: ErrorInfo{Message: "quota"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.ev)
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodePayload() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodePayloadErrors(t *testing.T) {
	if _, err := DecodePayload(stream.Event{Type: stream.KindTrace, Data: json.RawMessage(`{`)}); err == nil {
		t.Error("invalid JSON: error = nil")
	}
	if _, err := DecodePayload(stream.Event{Type: "token", Data: json.RawMessage(`"x"`)}); err == nil {
		t.Error("unknown kind: error = nil")
	}
}

func TestTranscriptAnswerFallsBackToFinal(t *testing.T) {
	var tr Transcript
	tr.HandleEvent(stream.Event{Type: stream.KindFinal, Data: json.RawMessage(`{"answer":"Approved."}`)})
	if tr.Answer() != "Approved." {
		t.Errorf("Answer() = %q", tr.Answer())
	}
	if tr.Events() != 1 {
		t.Errorf("Events() = %d", tr.Events())
	}
}
