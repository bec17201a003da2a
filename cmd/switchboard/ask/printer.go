package askcmder

import (
	"fmt"
	"io"
	"strings"
)

// streamPrinter turns the cumulative text a sink receives into incremental
// terminal output. When the text stops extending what was already printed
// (a retry started over) it moves to a fresh line and prints from scratch.
type streamPrinter struct {
	w       io.Writer
	printed string
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{w: w}
}

func (p *streamPrinter) sink(text string) {
	if !strings.HasPrefix(text, p.printed) {
		fmt.Fprintln(p.w)
		p.printed = ""
	}
	fmt.Fprint(p.w, text[len(p.printed):])
	p.printed = text
}

// finish terminates the streamed output with a newline when anything was
// printed.
func (p *streamPrinter) finish() {
	if p.printed != "" && !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(p.w)
	}
}
