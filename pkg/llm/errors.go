package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyConversation is returned when a conversation has no turns.
	ErrEmptyConversation = errors.New("conversation must contain at least one turn")

	// ErrFilesNotSupported is returned when a conversation carries file
	// attachments but the selected provider cannot accept uploads.
	ErrFilesNotSupported = errors.New("selected provider does not support file uploads")

	// ErrNoCredentials is returned when a backend requires a credential and
	// none is configured.
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrUnknownBackend is returned when a selection names a backend that has
	// no adapter.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrAllCredentialsExhausted is returned by a single credential traversal
	// when every credential failed. It is observed by the retry controller and
	// not returned to callers directly.
	ErrAllCredentialsExhausted = errors.New("all credentials exhausted")

	// ErrAllProvidersExhausted is the final failure once the retry budget is
	// spent.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrCancelled is returned when the caller's context is cancelled before
	// a call completes.
	ErrCancelled = errors.New("call cancelled")
)

// FileReadError is returned when a file attached to a turn could not be read.
// It aborts the current credential attempt.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("reading attachment %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// TransportError is a network or provider-side failure for one credential.
type TransportError struct {
	// Provider is the backend name (e.g. "gemini").
	Provider string

	// StatusCode is the upstream HTTP status, or 0 when no response arrived.
	StatusCode int

	// Body is the upstream error body, truncated by the adapter.
	Body string

	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s API error (status %d)", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s request: %v", e.Provider, e.Err)
	default:
		return e.Provider + " request failed"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
