package copilot

import (
	"encoding/json"
	"fmt"

	"dcc/internal/stream"

	"github.com/tidwall/gjson"
)

// The backend has used both camelCase and snake_case field names, and bare
// strings for the simplest payloads; the views below accept all of them.

type TraceStep struct {
	Step   string
	Status string
	Detail string
}

type MessageChunk struct {
	Text string
}

type EvidenceReveal struct {
	ID        string
	DocID     string
	DocTitle  string
	Page      int
	Content   string
	Score     float64
	MatchType string
}

type FinalSummary struct {
	Recommendation string
	Confidence     float64
	Answer         string
	Raw            json.RawMessage
}

type ErrorInfo struct {
	Message string
}

// DecodePayload returns the kind-specific view of ev's data: a TraceStep,
// MessageChunk, EvidenceReveal, FinalSummary or ErrorInfo.
func DecodePayload(ev stream.Event) (any, error) {
	if len(ev.Data) > 0 && !gjson.ValidBytes(ev.Data) {
		return nil, fmt.Errorf("copilot: invalid %s payload", ev.Type)
	}
	v := gjson.ParseBytes(ev.Data)

	switch ev.Type {
	case stream.KindTrace:
		if v.Type == gjson.String {
			return TraceStep{Step: v.Str}, nil
		}
		return TraceStep{
			Step:   firstString(v, "step", "label", "title", "name"),
			Status: firstString(v, "status", "state"),
			Detail: firstString(v, "detail", "message", "description"),
		}, nil
	case stream.KindMessageChunk:
		if v.Type == gjson.String {
			return MessageChunk{Text: v.Str}, nil
		}
		return MessageChunk{Text: firstString(v, "content", "text", "delta")}, nil
	case stream.KindEvidenceReveal:
		return EvidenceReveal{
			ID:        firstString(v, "id", "evidence_id", "evidenceId"),
			DocID:     firstString(v, "docId", "doc_id"),
			DocTitle:  firstString(v, "docTitle", "doc_title", "title"),
			Page:      int(firstField(v, "page").Int()),
			Content:   firstString(v, "content", "snippet", "text"),
			Score:     firstField(v, "score").Float(),
			MatchType: firstString(v, "matchType", "match_type"),
		}, nil
	case stream.KindFinal:
		return FinalSummary{
			Recommendation: firstString(v, "recommendation", "decision"),
			Confidence:     firstField(v, "confidence", "score").Float(),
			Answer:         firstString(v, "answer", "summary", "message"),
			Raw:            ev.Data,
		}, nil
	case stream.KindError:
		if v.Type == gjson.String {
			return ErrorInfo{Message: v.Str}, nil
		}
		return ErrorInfo{Message: firstString(v, "message", "error", "detail")}, nil
	}
	return nil, fmt.Errorf("copilot: unknown event kind %q", ev.Type)
}

func firstField(v gjson.Result, keys ...string) gjson.Result {
	if !v.IsObject() {
		return gjson.Result{}
	}
	for _, k := range keys {
		if f := v.Get(k); f.Exists() && f.Type != gjson.Null {
			return f
		}
	}
	return gjson.Result{}
}

func firstString(v gjson.Result, keys ...string) string {
	f := firstField(v, keys...)
	if f.Type == gjson.String {
		return f.Str
	}
	return ""
}
