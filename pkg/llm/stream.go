package llm

import "strings"

// StreamSink receives generated text as it arrives. It is always called with
// the full text so far, never a delta.
//
// Within one attempt the text only grows. A failed attempt is never retracted,
// so a sink can see the text reset to a shorter value when a later attempt
// starts over from empty.
type StreamSink func(text string)

// Accumulator turns incremental deltas from a backend stream into the
// cumulative text that a StreamSink expects.
type Accumulator struct {
	buf  strings.Builder
	sink StreamSink
}

// NewAccumulator returns an Accumulator that reports to sink. A nil sink is
// allowed and only accumulates.
func NewAccumulator(sink StreamSink) *Accumulator {
	return &Accumulator{sink: sink}
}

// Write appends delta and invokes the sink with the full buffer.
// Empty deltas (keep-alives, role-only chunks) are dropped.
func (a *Accumulator) Write(delta string) {
	if delta == "" {
		return
	}
	a.buf.WriteString(delta)
	if a.sink != nil {
		a.sink(a.buf.String())
	}
}

// String returns the text accumulated so far.
func (a *Accumulator) String() string {
	return a.buf.String()
}

// Len returns the length in bytes of the accumulated text.
func (a *Accumulator) Len() int {
	return a.buf.Len()
}
