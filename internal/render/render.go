// Package render prints copilot events to a terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"dcc/internal/copilot"
	"dcc/internal/stream"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var (
	Dim    = []byte("\x1b[2m")
	Red    = []byte("\x1b[31m")
	Green  = []byte("\x1b[32m")
	Yellow = []byte("\x1b[33m")
	Cyan   = []byte("\x1b[36m")
	Reset  = []byte("\x1b[0m")
)

// Colors holds the escape codes used per event kind. A nil *Colors prints
// plain text.
type Colors struct {
	Trace    []byte
	Evidence []byte
	Final    []byte
	Error    []byte
	Reset    []byte
}

var DefaultColors = Colors{
	Trace:    Dim,
	Evidence: Cyan,
	Final:    Green,
	Error:    Red,
	Reset:    Reset,
}

// Printer is a stream.Handler writing one event at a time. Message chunks
// are written as they come so the answer appears progressively.
type Printer struct {
	w      io.Writer
	colors *Colors
	raw    bool

	// midLine is set while the cursor sits after a chunk without newline.
	midLine bool
}

// New returns a Printer writing to w. In raw mode events are written back
// as NDJSON, one per line.
func New(w io.Writer, colors *Colors, raw bool) *Printer {
	return &Printer{w: w, colors: colors, raw: raw}
}

// Stdout returns a Printer for the process's standard output, with colors
// when it is a terminal.
func Stdout(raw bool) *Printer {
	if !raw && isatty.IsTerminal(os.Stdout.Fd()) {
		return New(colorable.NewColorableStdout(), &DefaultColors, false)
	}
	return New(os.Stdout, nil, raw)
}

func (p *Printer) HandleEvent(ev stream.Event) error {
	if p.raw {
		line, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = p.w.Write(append(line, '\n'))
		return err
	}

	payload, err := copilot.DecodePayload(ev)
	if err != nil {
		return p.line(p.color(func(c *Colors) []byte { return c.Error }), "? %s %s", ev.Type, ev.Data)
	}

	switch v := payload.(type) {
	case copilot.MessageChunk:
		if v.Text == "" {
			return nil
		}
		p.midLine = !strings.HasSuffix(v.Text, "\n")
		_, err := io.WriteString(p.w, v.Text)
		return err
	case copilot.TraceStep:
		text := v.Step
		if v.Status != "" {
			text += " (" + v.Status + ")"
		}
		if v.Detail != "" {
			text += ": " + v.Detail
		}
		return p.line(p.color(func(c *Colors) []byte { return c.Trace }), "· %s", text)
	case copilot.EvidenceReveal:
		ref := v.DocTitle
		if ref == "" {
			ref = v.DocID
		}
		if v.Page > 0 {
			ref += fmt.Sprintf(" p.%d", v.Page)
		}
		return p.line(p.color(func(c *Colors) []byte { return c.Evidence }), "[%s] %s", v.ID, strings.TrimSpace(ref))
	case copilot.FinalSummary:
		switch {
		case v.Recommendation != "" && v.Confidence > 0:
			return p.line(p.color(func(c *Colors) []byte { return c.Final }), "=> %s (%.0f%%)", v.Recommendation, v.Confidence*100)
		case v.Recommendation != "":
			return p.line(p.color(func(c *Colors) []byte { return c.Final }), "=> %s", v.Recommendation)
		}
		p.endLine()
		return nil
	case copilot.ErrorInfo:
		return p.line(p.color(func(c *Colors) []byte { return c.Error }), "error: %s", v.Message)
	}
	return nil
}

// Close terminates a pending partial line.
func (p *Printer) Close() error {
	return p.endLine()
}

func (p *Printer) color(pick func(*Colors) []byte) []byte {
	if p.colors == nil {
		return nil
	}
	return pick(p.colors)
}

func (p *Printer) line(code []byte, format string, args ...any) error {
	if err := p.endLine(); err != nil {
		return err
	}
	var b strings.Builder
	if code != nil {
		b.Write(code)
	}
	fmt.Fprintf(&b, format, args...)
	if code != nil {
		b.Write(p.colors.Reset)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Printer) endLine() error {
	if !p.midLine {
		return nil
	}
	p.midLine = false
	_, err := io.WriteString(p.w, "\n")
	return err
}
