package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sse(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, ev := range events {
		var typ struct {
			Type string `json:"type"`
		}
		json.Unmarshal([]byte(ev), &typ)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", typ.Type, ev)
		w.(http.Flusher).Flush()
	}
}

func TestOpenAIChatStream(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		sse(w,
			`{"type":"response.output_text.delta","delta":"Appro","sequence_number":1}`,
			`{"type":"response.output_text.delta","delta":"ve.","sequence_number":2}`,
			`{"type":"response.completed","sequence_number":3,"response":{"id":"resp_1","model":"gpt-test","usage":{"input_tokens":12,"output_tokens":3,"total_tokens":15}}}`,
		)
	}))
	defer srv.Close()

	var tokens []string
	p := NewOpenAI(srv.URL, "test-key", "gpt-test")
	got, err := p.ChatStream(context.Background(), []Message{
		{Role: "developer", Content: "be brief"},
		{Role: "user", Content: "PO-1?"},
	}, func(tok string) { tokens = append(tokens, tok) })
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	if diff := cmp.Diff([]string{"Appro", "ve."}, tokens); diff != "" {
		t.Errorf("tokens (-want +got):\n%s", diff)
	}
	want := &Completion{Model: "gpt-test", Text: "Approve.", InputTokens: 12, OutputTokens: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChatStream() (-want +got):\n%s", diff)
	}
	if body["model"] != "gpt-test" {
		t.Errorf("request model = %v", body["model"])
	}
	if input, _ := body["input"].([]any); len(input) != 2 {
		t.Errorf("request input = %v", body["input"])
	}
}

func TestOpenAIChatStreamFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sse(w, `{"type":"response.failed","sequence_number":1,"response":{"id":"resp_1","error":{"code":"server_error","message":"overloaded"}}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "test-key", "gpt-test").ChatStream(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, func(string) {})
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("ChatStream() error = %v, want overloaded", err)
	}
}
