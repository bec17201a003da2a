// Package eventstream describes the call events the router emits after every
// generate call and the publishers that ship them. Events carry call metadata
// only, never conversation text.
package eventstream

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/switchboard/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCallCompleted is emitted once a generate call has finished,
	// successfully or not.
	EventTypeCallCompleted = "switchboard.call.completed"
)

// Outcome classifies how a call ended.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeExhausted   Outcome = "exhausted"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeConfigError Outcome = "config_error"
	OutcomeFailed      Outcome = "failed"
)

// OutcomeOf maps a generate error onto an Outcome. A nil error succeeded.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case errors.Is(err, llm.ErrCancelled):
		return OutcomeCancelled
	case errors.Is(err, llm.ErrAllProvidersExhausted):
		return OutcomeExhausted
	case errors.Is(err, llm.ErrNoCredentials),
		errors.Is(err, llm.ErrUnknownBackend),
		errors.Is(err, llm.ErrFilesNotSupported),
		errors.Is(err, llm.ErrEmptyConversation):
		return OutcomeConfigError
	default:
		return OutcomeFailed
	}
}

// CallEvent is a transport-neutral event payload for one generate call.
type CallEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	CallID        string    `json:"call_id"`
	Selection     Selection `json:"selection"`
	Meta          CallMeta  `json:"meta"`
}

// Selection identifies what the call was routed to.
type Selection struct {
	Requested string `json:"requested,omitempty"`
	Key       string `json:"key"`
	Backend   string `json:"backend"`
	Model     string `json:"model"`
}

// CallMeta captures call lifecycle metadata for the event.
type CallMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Turns       int       `json:"turns"`
	Attachments int       `json:"attachments"`
	Credentials int       `json:"credentials"`
	Streaming   bool      `json:"streaming"`
	Outcome     Outcome   `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	OutputBytes int       `json:"output_bytes"`
}

// NewCallEvent stamps a CallEvent with a fresh event ID, the schema version,
// and the emit time. The outcome and error text are derived from err.
func NewCallEvent(callID string, sel Selection, meta CallMeta, err error) *CallEvent {
	meta.Outcome = OutcomeOf(err)
	if err != nil {
		meta.Error = err.Error()
	}
	if !meta.CompletedAt.IsZero() && !meta.StartedAt.IsZero() {
		meta.DurationMs = meta.CompletedAt.Sub(meta.StartedAt).Milliseconds()
	}

	return &CallEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeCallCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		CallID:        callID,
		Selection:     sel,
		Meta:          meta,
	}
}
