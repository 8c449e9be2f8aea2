// Package stream decodes the copilot's newline-delimited JSON event stream.
//
// A Decoder is built for one response body. It reads the body chunk by chunk,
// reassembles lines split across chunks and hands every well-formed event to
// a Handler before it reads the next chunk. Lines that are not valid JSON or
// that carry no recognized type are logged and skipped. Transport failures
// are reported as a single error event through the same Handler, so a caller
// watches one channel for both data and failure.
//
// Only newline-terminated lines count as events: a trailing fragment without
// a final '\n' at end of stream is dropped.
//
// The decoder enforces no timeout. Callers bound a stream through the request
// context; cancelling it makes the next read fail, which ends the stream with
// an error event like any other interruption.
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"dcc/internal/metrics"

	"github.com/tidwall/gjson"
)

const defaultChunkSize = 32 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrDecoderDone is returned when a finished decoder is fed again.
var ErrDecoderDone = errors.New("stream: decoder already done")

type State int

const (
	StateStreaming State = iota
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Discard reasons, as they appear in logs and metrics.
const (
	ReasonBlank       = "blank"
	ReasonMalformed   = "malformed"
	ReasonUntyped     = "untyped"
	ReasonUnknownKind = "unknown_kind"
	ReasonTail        = "unterminated_tail"
)

// Stats counts what a decoder has seen so far.
type Stats struct {
	Chunks      int
	Bytes       int
	Lines       int
	Events      int
	Blank       int
	Malformed   int
	Untyped     int
	UnknownKind int
	// TailBytes is the size of the unterminated fragment dropped at end of stream.
	TailBytes int
}

// Discarded returns the number of non-blank lines that produced no event.
func (s Stats) Discarded() int {
	return s.Malformed + s.Untyped + s.UnknownKind
}

type Option func(*Decoder)

func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithChunkSize sets the size of the read buffer used by Decode.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

type Decoder struct {
	handler   Handler
	logger    *slog.Logger
	chunkSize int

	buf   lineBuffer
	state State
	stats Stats
}

func NewDecoder(h Handler, opts ...Option) *Decoder {
	d := &Decoder{
		handler:   h,
		logger:    slog.Default(),
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) State() State { return d.state }

func (d *Decoder) Stats() Stats { return d.stats }

// Run decodes the body of resp. A nil response, a non-2xx status or a
// missing body produce one error event without any read. Run closes the
// body and returns a non-nil error only when the handler fails.
func Run(resp *http.Response, h Handler, opts ...Option) error {
	return NewDecoder(h, opts...).Run(resp)
}

func (d *Decoder) Run(resp *http.Response) error {
	if d.state == StateDone {
		return ErrDecoderDone
	}
	if resp == nil {
		return d.fail("connect", MsgConnectionFailed, errors.New("no response"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return d.fail("connect", MsgConnectionFailed, fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return d.fail("connect", MsgConnectionFailed, errors.New("response has no body"))
	}
	defer resp.Body.Close()
	return d.Decode(resp.Body)
}

// Decode reads r until end of stream. A read error ends the stream with one
// error event; Decode then returns nil unless the handler failed.
func (d *Decoder) Decode(r io.Reader) error {
	if d.state == StateDone {
		return ErrDecoderDone
	}

	chunk := make([]byte, d.chunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if herr := d.Feed(chunk[:n]); herr != nil {
				return herr
			}
		}
		if err == io.EOF {
			d.finish()
			return nil
		}
		if err != nil {
			return d.fail("read", MsgStreamInterrupted, err)
		}
	}
}

// Feed processes one chunk. Every complete line it closes is handled before
// Feed returns. A handler error stops the decoder and is returned wrapped.
func (d *Decoder) Feed(chunk []byte) error {
	if d.state == StateDone {
		return ErrDecoderDone
	}
	d.stats.Chunks++
	d.stats.Bytes += len(chunk)

	err := d.buf.write(chunk, d.line)
	if err != nil {
		d.state = StateDone
	}
	return err
}

func (d *Decoder) line(raw []byte) error {
	if d.stats.Lines == 0 {
		raw = bytes.TrimPrefix(raw, utf8BOM)
	}
	d.stats.Lines++

	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		d.stats.Blank++
		metrics.ObserveDiscard(ReasonBlank)
		return nil
	}

	ev, reason := parseLine(line)
	if reason != "" {
		d.discard(reason, line)
		return nil
	}
	return d.emit(ev)
}

// parseLine turns one trimmed line into an event, or names why it cannot.
func parseLine(line []byte) (Event, string) {
	if !gjson.ValidBytes(line) {
		return Event{}, ReasonMalformed
	}
	v := gjson.ParseBytes(line)
	if !v.IsObject() {
		return Event{}, ReasonUntyped
	}
	t := v.Get("type")
	if t.Type != gjson.String || t.Str == "" {
		return Event{}, ReasonUntyped
	}
	kind := Kind(t.Str)
	if !kind.Valid() {
		return Event{}, ReasonUnknownKind
	}

	ev := Event{Type: kind}
	if data := v.Get("data"); data.Exists() {
		ev.Data = []byte(data.Raw)
	}
	return ev, ""
}

func (d *Decoder) discard(reason string, line []byte) {
	switch reason {
	case ReasonMalformed:
		d.stats.Malformed++
		d.logger.Warn("stream: invalid NDJSON line", "reason", reason, "line", preview(line))
	case ReasonUntyped:
		d.stats.Untyped++
		d.logger.Debug("stream: line without event type", "reason", reason, "line", preview(line))
	case ReasonUnknownKind:
		d.stats.UnknownKind++
		d.logger.Debug("stream: unknown event type", "reason", reason, "type", gjson.GetBytes(line, "type").Str)
	}
	metrics.ObserveDiscard(reason)
}

func (d *Decoder) emit(ev Event) error {
	if err := d.handler.HandleEvent(ev); err != nil {
		d.state = StateDone
		return fmt.Errorf("handling %s event: %w", ev.Type, err)
	}
	d.stats.Events++
	metrics.ObserveEvent(string(ev.Type))
	return nil
}

func (d *Decoder) finish() {
	if n := d.buf.pending(); n > 0 {
		d.stats.TailBytes = n
		metrics.ObserveDiscard(ReasonTail)
		d.logger.Debug("stream: dropping unterminated trailing line", "bytes", n)
	}
	d.buf.reset()
	d.state = StateDone
	d.logger.Debug("stream: done", "events", d.stats.Events, "discarded", d.stats.Discarded(), "bytes", d.stats.Bytes)
}

// fail ends the stream with a single locally built error event.
func (d *Decoder) fail(phase, message string, cause error) error {
	d.buf.reset()
	d.state = StateDone
	metrics.ObserveFailure(phase)
	d.logger.Warn("stream: transport failure", "phase", phase, "error", cause, "events", d.stats.Events)
	return d.emit(ErrorEvent(message))
}

func preview(line []byte) string {
	const limit = 200
	if len(line) > limit {
		return string(line[:limit]) + "..."
	}
	return string(line)
}
