// Package provider defines the backend adapter contract and builds adapters
// by backend name.
package provider

import (
	"context"

	"github.com/papercomputeco/switchboard/pkg/llm"
)

// Provider is a backend adapter. Each Send is exactly one attempt with one
// credential; retrying and rotating credentials is the caller's job.
type Provider interface {
	// Name returns the backend name (e.g. "gemini", "deepinfra").
	Name() string

	// SupportsStreaming reports whether Send honours req.Sink.
	SupportsStreaming() bool

	// Send formats req.Conversation, calls the backend, and returns the
	// generated text. When req.Sink is set and streaming is supported, the
	// sink receives the cumulative text as it arrives and the final text is
	// still returned.
	//
	// Errors are *llm.FileReadError when an attachment cannot be read and
	// *llm.TransportError for network or upstream failures.
	Send(ctx context.Context, req *llm.Request) (string, error)
}
