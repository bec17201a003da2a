package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	initialBufSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

// Reader parses SSE events from an upstream body. When built with
// NewTeeReader every raw line is also copied to a destination writer.
type Reader struct {
	scanner *bufio.Scanner
	tee     io.Writer

	ev        Event
	dataLines int
	pending   bool
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, nil)
}

// NewTeeReader returns a Reader over src that writes each raw line, newline
// restored, to dest. A nil dest disables the copy.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initialBufSize), maxLineSize)

	return &Reader{scanner: scanner, tee: dest}
}

// Next blocks until a complete event is available. It returns nil, nil once
// the source is exhausted. A trailing event with no terminating blank line is
// still returned.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		if r.tee != nil {
			if _, err := io.WriteString(r.tee, line+"\n"); err != nil {
				return nil, err
			}
		}

		switch {
		case line == "":
			if ev, ok := r.flush(); ok {
				return ev, nil
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		default:
			r.field(line)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if ev, ok := r.flush(); ok {
		return ev, nil
	}
	return nil, nil
}

// field accumulates one "name:value" line. A single space after the colon is
// stripped and a line without a colon is a field with an empty value.
func (r *Reader) field(line string) {
	name, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch name {
	case "data":
		if r.dataLines > 0 {
			r.ev.Data += "\n"
		}
		r.ev.Data += value
		r.dataLines++
		r.pending = true
	case "event":
		r.ev.Type = value
		r.pending = true
	case "id":
		r.ev.ID = value
		r.pending = true
	}
}

func (r *Reader) flush() (*Event, bool) {
	if !r.pending {
		return nil, false
	}
	ev := r.ev
	r.ev = Event{}
	r.pending = false
	r.dataLines = 0
	return &ev, true
}
