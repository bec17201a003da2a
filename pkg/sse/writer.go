package sse

import (
	"io"
	"strings"
)

type flusher interface {
	Flush() error
}

// Writer frames events onto a downstream response. If the underlying writer
// has a Flush() error method (such as *bufio.Writer) it is flushed after
// every event so clients see text as soon as it is produced.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits one event. Multi-line data is split across several "data:"
// lines so a Reader reassembles it unchanged.
func (w *Writer) Write(ev Event) error {
	var b strings.Builder
	if ev.Type != "" {
		b.WriteString("event: " + ev.Type + "\n")
	}
	if ev.ID != "" {
		b.WriteString("id: " + ev.ID + "\n")
	}
	for line := range strings.SplitSeq(ev.Data, "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w.w, b.String()); err != nil {
		return err
	}
	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Comment writes a ":" comment line, used as a keep-alive.
func (w *Writer) Comment(text string) error {
	if _, err := io.WriteString(w.w, ": "+text+"\n\n"); err != nil {
		return err
	}
	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
