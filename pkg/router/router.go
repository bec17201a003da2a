// Package router is the entry point for generating a response: it resolves a
// selection, gates capabilities, resolves credentials, and hands each
// credential attempt to the dispatch controller.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/switchboard/pkg/credentials"
	"github.com/papercomputeco/switchboard/pkg/dispatch"
	"github.com/papercomputeco/switchboard/pkg/eventstream"
	"github.com/papercomputeco/switchboard/pkg/eventstream/nop"
	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/llm/provider"
	"github.com/papercomputeco/switchboard/pkg/logger"
	"github.com/papercomputeco/switchboard/pkg/registry"
)

// CredentialSource resolves the raw, comma-separated credential string for a
// backend. An empty string means nothing is configured.
type CredentialSource interface {
	Resolve(backend string) (string, error)
}

// StaticCredentials is a CredentialSource backed by a fixed map.
type StaticCredentials map[string]string

func (s StaticCredentials) Resolve(backend string) (string, error) {
	return s[backend], nil
}

// Config is the construction config for a Router.
type Config struct {
	// Registry is the selection table. Required.
	Registry *registry.Registry

	// Backends maps backend names to adapters. Required.
	Backends map[string]provider.Provider

	// Credentials resolves API keys. Required.
	Credentials CredentialSource

	// Controller is the retry policy. Nil means dispatch.New defaults.
	Controller *dispatch.Controller

	// Events receives one event per Generate call. Nil disables publishing.
	Events eventstream.Publisher

	Logger *slog.Logger
}

// ErrClosed is returned by Generate once Close has been called.
var ErrClosed = errors.New("router is closed")

// publishTimeout bounds publishing a call event after the call has ended.
const publishTimeout = 5 * time.Second

// Router dispatches generate calls. It holds no per-call state and is safe for
// concurrent use.
type Router struct {
	registry   *registry.Registry
	backends   map[string]provider.Provider
	creds      CredentialSource
	controller *dispatch.Controller
	events     eventstream.Publisher
	logger     *slog.Logger

	// mu is read-held for the whole of each call so Close can wait for
	// in-flight calls to publish their events.
	mu     sync.RWMutex
	closed bool
}

// New creates a Router.
func New(cfg Config) (*Router, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if len(cfg.Backends) == 0 {
		return nil, errors.New("at least one backend is required")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("credential source is required")
	}

	log := logger.OrNop(cfg.Logger)

	ctl := cfg.Controller
	if ctl == nil {
		ctl = dispatch.New(log)
	}

	events := cfg.Events
	if events == nil {
		events = nop.NewPublisher()
	}

	return &Router{
		registry:   cfg.Registry,
		backends:   cfg.Backends,
		creds:      cfg.Credentials,
		controller: ctl,
		events:     events,
		logger:     log,
	}, nil
}

// Registry returns the selection table the router resolves against.
func (r *Router) Registry() *registry.Registry {
	return r.registry
}

// Generate answers the last turn of conv using the selection named by key,
// falling back to the default selection for unknown keys.
//
// When sink is non-nil it receives the cumulative text as it is generated.
// Backends that cannot stream call sink exactly once with the final text.
// The final text is returned in every case.
func (r *Router) Generate(ctx context.Context, conv llm.Conversation, key string, uc registry.UserConfig, sink llm.StreamSink) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return "", ErrClosed
	}
	return r.generate(ctx, conv, key, uc, sink)
}

func (r *Router) generate(ctx context.Context, conv llm.Conversation, key string, uc registry.UserConfig, sink llm.StreamSink) (text string, err error) {
	callID := uuid.NewString()
	log := r.logger.With("call_id", callID)

	sel := eventstream.Selection{Requested: key}
	meta := eventstream.CallMeta{
		StartedAt:   time.Now(),
		Turns:       len(conv),
		Attachments: conv.Attachments(),
	}
	defer func() {
		meta.CompletedAt = time.Now()
		meta.OutputBytes = len(text)
		r.publish(ctx, log, eventstream.NewCallEvent(callID, sel, meta, err))
	}()

	if err := conv.Validate(); err != nil {
		return "", err
	}

	desc := r.registry.Resolve(key)
	sel.Key, sel.Backend, sel.Model = desc.Key, desc.Backend, desc.Model
	if desc.Key != key {
		log.Debug("selection not found, using default", "requested", key, "default", desc.Key)
	}
	log = log.With("selection", desc.Key, "backend", desc.Backend, "model", desc.Model)

	opts := r.registry.OptionsFor(desc.Key, uc)

	if conv.HasFiles() && !desc.Capabilities.FileUpload {
		return "", fmt.Errorf("%s: %w", desc.Key, llm.ErrFilesNotSupported)
	}

	prov, ok := r.backends[desc.Backend]
	if !ok {
		return "", fmt.Errorf("%w: %q", llm.ErrUnknownBackend, desc.Backend)
	}

	keys, err := r.credentialsFor(desc.Backend)
	if err != nil {
		return "", err
	}
	meta.Credentials = len(keys)

	streaming := sink != nil && desc.Capabilities.Streaming && prov.SupportsStreaming()
	var attemptSink llm.StreamSink
	if streaming {
		attemptSink = sink
	}
	meta.Streaming = streaming

	log.Debug("generating",
		"turns", len(conv),
		"credentials", len(keys),
		"streaming", streaming,
	)

	start := time.Now()
	text, err = r.controller.WithLogger(log).Call(ctx, keys, func(ctx context.Context, apiKey string) (string, error) {
		return prov.Send(ctx, &llm.Request{
			APIKey:       apiKey,
			Model:        desc.Model,
			Conversation: conv,
			Options:      opts,
			Sink:         attemptSink,
		})
	})
	if err != nil {
		log.Error("generate failed", "error", err, "duration", time.Since(start))
		return "", err
	}

	if sink != nil && !streaming {
		sink(text)
	}

	log.Info("generate complete", "duration", time.Since(start), "bytes", len(text))
	return text, nil
}

func (r *Router) credentialsFor(backend string) ([]string, error) {
	required := provider.RequiresCredential(backend)
	if !required {
		return credentials.ForBackend(backend, "", false)
	}

	raw, err := r.creds.Resolve(backend)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for %s: %w", backend, err)
	}
	return credentials.ForBackend(backend, raw, true)
}

// Close waits for in-flight calls to finish, then releases the event
// publisher. Later calls fail with ErrClosed. Close is idempotent.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.events.Close()
}

// publish ships ev without letting a cancelled call or a slow broker affect
// the caller's result.
func (r *Router) publish(ctx context.Context, log *slog.Logger, ev *eventstream.CallEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := r.events.PublishCall(ctx, ev); err != nil {
		log.Warn("publishing call event failed", "error", err)
	}
}
