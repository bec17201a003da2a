// Package sse reads and writes Server-Sent Events. Provider adapters use the
// Reader to consume streamed completions and the server uses the Writer to
// stream cumulative text to its own clients.
//
// See https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// doneSentinel is the data payload OpenAI-compatible backends send as their
// last event.
const doneSentinel = "[DONE]"

// Event is a single SSE event, delimited by a blank line.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data holds every "data:" line of the event joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}

// IsDone reports whether the event is the OpenAI-style end-of-stream marker.
func (e *Event) IsDone() bool {
	return e.Data == doneSentinel
}
