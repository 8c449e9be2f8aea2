package stream

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func collectLines(t *testing.T, b *lineBuffer, chunks ...string) []string {
	t.Helper()
	var lines []string
	for _, c := range chunks {
		err := b.write([]byte(c), func(line []byte) error {
			lines = append(lines, string(line))
			return nil
		})
		if err != nil {
			t.Fatalf("write(%q) error = %v", c, err)
		}
	}
	return lines
}

func TestLineBufferWrite(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		want    []string
		pending int
	}{
		{"single line", []string{"abc\n"}, []string{"abc"}, 0},
		{"split line", []string{"ab", "c\n"}, []string{"abc"}, 0},
		{"two lines one chunk", []string{"a\nb\n"}, []string{"a", "b"}, 0},
		{"tail kept", []string{"a\nbc"}, []string{"a"}, 2},
		{"empty chunks", []string{"", "a", "", "\n", ""}, []string{"a"}, 0},
		{"empty lines", []string{"\n\n"}, []string{"", ""}, 0},
		{"newline at chunk start", []string{"ab", "\ncd"}, []string{"ab"}, 2},
		{"no newline", []string{"ab", "cd"}, nil, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b lineBuffer
			got := collectLines(t, &b, tt.chunks...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
			if b.pending() != tt.pending {
				t.Errorf("pending() = %d, want %d", b.pending(), tt.pending)
			}
		})
	}
}

func TestLineBufferKeepsTailAcrossManyChunks(t *testing.T) {
	var b lineBuffer
	got := collectLines(t, &b, "x", "y", "z", "\nw")
	if diff := cmp.Diff([]string{"xyz"}, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	got = collectLines(t, &b, "\n")
	if diff := cmp.Diff([]string{"w"}, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestLineBufferStopsOnError(t *testing.T) {
	var b lineBuffer
	boom := errors.New("boom")
	var seen []string
	err := b.write([]byte("a\nb\nc\n"), func(line []byte) error {
		seen = append(seen, string(line))
		if string(line) == "b" {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("write() error = %v, want %v", err, boom)
	}
	if diff := cmp.Diff([]string{"a", "b"}, seen); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if b.pending() != 0 {
		t.Errorf("pending() = %d after error, want 0", b.pending())
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line   string
		kind   Kind
		data   string
		reason string
	}{
		{`{"type":"trace","data":{"step":1}}`, KindTrace, `{"step":1}`, ""},
		{`{"data": [1, 2], "type": "final"}`, KindFinal, `[1, 2]`, ""},
		{`{"type":"message_chunk"}`, KindMessageChunk, "", ""},
		{`{"type":"error","data":null}`, KindError, `null`, ""},
		{`{"type":"trace"`, "", "", ReasonMalformed},
		{`not json`, "", "", ReasonMalformed},
		{`{"type":"trace"} {"type":"final"}`, "", "", ReasonMalformed},
		{`{"data":1}`, "", "", ReasonUntyped},
		{`{"type":""}`, "", "", ReasonUntyped},
		{`{"type":7}`, "", "", ReasonUntyped},
		{`["trace"]`, "", "", ReasonUntyped},
		{`"trace"`, "", "", ReasonUntyped},
		{`{"type":"token","data":"x"}`, "", "", ReasonUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ev, reason := parseLine([]byte(tt.line))
			if reason != tt.reason {
				t.Fatalf("parseLine() reason = %q, want %q", reason, tt.reason)
			}
			if reason != "" {
				return
			}
			if ev.Type != tt.kind {
				t.Errorf("parseLine() type = %q, want %q", ev.Type, tt.kind)
			}
			if string(ev.Data) != tt.data {
				t.Errorf("parseLine() data = %q, want %q", ev.Data, tt.data)
			}
			if tt.data == "" && ev.Data != nil {
				t.Errorf("parseLine() data = %q, want nil", ev.Data)
			}
		})
	}
}
