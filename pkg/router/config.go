package router

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/switchboard/pkg/config"
	"github.com/papercomputeco/switchboard/pkg/dispatch"
	"github.com/papercomputeco/switchboard/pkg/eventstream"
	"github.com/papercomputeco/switchboard/pkg/eventstream/kafka"
	"github.com/papercomputeco/switchboard/pkg/eventstream/nop"
	"github.com/papercomputeco/switchboard/pkg/llm/provider"
	"github.com/papercomputeco/switchboard/pkg/registry"
)

// FromConfig builds a Router over the built-in selection table with one
// adapter per supported backend, using the backend sections, default
// selection, retry policy, and event publishing settings from cfg. Callers
// should Close the Router when done.
func FromConfig(cfg *config.Config, creds CredentialSource, log *slog.Logger) (*Router, error) {
	reg, err := registry.New(cfg.Router.DefaultSelection)
	if err != nil {
		return nil, fmt.Errorf("router.default_selection: %w", err)
	}

	backends, err := provider.NewAll(func(backend string) provider.Config {
		bc := cfg.Backend(backend)
		return provider.Config{
			BaseURL:         bc.BaseURL,
			MaxOutputTokens: bc.MaxOutputTokens,
		}
	})
	if err != nil {
		return nil, err
	}

	initial, maxBackoff, err := cfg.Router.Backoff()
	if err != nil {
		return nil, err
	}

	events, err := NewEventPublisher(cfg.Events, log)
	if err != nil {
		return nil, err
	}

	return New(Config{
		Events:      events,
		Registry:    reg,
		Backends:    backends,
		Credentials: creds,
		Controller: &dispatch.Controller{
			MaxRetries:     cfg.Router.Retries(),
			InitialBackoff: initial,
			MaxBackoff:     maxBackoff,
			Logger:         log,
		},
		Logger: log,
	})
}

// NewEventPublisher returns a Kafka publisher when brokers are configured and
// a no-op publisher otherwise.
func NewEventPublisher(cfg config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	if !cfg.Enabled() {
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: cfg.Brokers(),
		Topic:   cfg.KafkaTopic,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return p, nil
}
