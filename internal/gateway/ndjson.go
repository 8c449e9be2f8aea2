package gateway

import (
	"encoding/json"
	"net/http"

	"dcc/internal/stream"
)

// NDJSONWriter writes one event per line and flushes after each, so the
// client sees every event as soon as it is produced.
type NDJSONWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func NewNDJSONWriter(w http.ResponseWriter) *NDJSONWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	return &NDJSONWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

func (n *NDJSONWriter) Send(ev stream.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := n.w.Write(b); err != nil {
		return err
	}
	return n.rc.Flush()
}
