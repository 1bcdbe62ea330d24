// Package output renders emitted units as newline-delimited JSON. Each
// Write produces exactly one self-contained JSON value followed by a
// newline and is flushed immediately; the sink never buffers units
// together. Stdout carries payloads only; all narration belongs on stderr.
package output

import (
	"encoding/json"
	"io"
)

// Writer emits one JSON value per line.
type Writer struct {
	w       io.Writer
	encoder *json.Encoder
}

type flusher interface {
	Flush() error
}

// NewWriter creates a Writer. With pretty set, values are indented but each
// Write still emits one value terminated by a newline, so the stream stays
// parseable by a streaming JSON decoder.
func NewWriter(w io.Writer, pretty bool) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Writer{w: w, encoder: enc}
}

// Write encodes one unit and flushes it.
func (w *Writer) Write(v any) error {
	if err := w.encoder.Encode(v); err != nil {
		return err
	}
	return w.Flush()
}

// Flush forces buffered bytes out when the underlying writer buffers.
func (w *Writer) Flush() error {
	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
