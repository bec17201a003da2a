// Package dispatch runs a call across an ordered credential list and retries
// the whole traversal a bounded number of times.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/papercomputeco/switchboard/pkg/credentials"
	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/logger"
)

const (
	// DefaultMaxRetries is the number of whole-pipeline retries after the
	// first traversal, so a permanently failing call makes four traversals.
	DefaultMaxRetries = 3

	DefaultInitialBackoff = 250 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
)

// Attempt performs one call with one credential.
type Attempt func(ctx context.Context, key string) (string, error)

// Controller owns the retry policy. The zero value retries nothing and never
// waits; use New for the defaults. A Controller holds no per-call state and
// is safe for concurrent use.
type Controller struct {
	// MaxRetries is the number of traversals after the first. Negative values
	// are treated as 0.
	MaxRetries int

	// InitialBackoff is the wait before the first retry, doubling after each
	// retry up to MaxBackoff. 0 retries immediately.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Logger *slog.Logger
}

// New returns a Controller with the default retry budget and backoff.
func New(log *slog.Logger) *Controller {
	return &Controller{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		Logger:         log,
	}
}

// WithLogger returns a copy of c that logs to log.
func (c *Controller) WithLogger(log *slog.Logger) *Controller {
	cp := *c
	cp.Logger = log
	return &cp
}

// Call runs attempt for each key in order until one succeeds. If every key
// fails, the traversal is retried from the first key, up to MaxRetries more
// times.
//
// Errors:
//   - llm.ErrCancelled (wrapping ctx.Err()) once ctx is done, at any point
//   - llm.ErrAllProvidersExhausted wrapping the last traversal failure when
//     the retry budget is spent
//   - configuration errors (llm.ErrNoCredentials, llm.ErrUnknownBackend,
//     llm.ErrFilesNotSupported, llm.ErrEmptyConversation) unchanged and
//     without any retry
func (c *Controller) Call(ctx context.Context, keys []string, attempt Attempt) (string, error) {
	log := logger.OrNop(c.Logger)

	if len(keys) == 0 {
		return "", llm.ErrNoCredentials
	}

	var (
		text       string
		traversals int
	)
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		traversals++
		t, err := c.traverse(ctx, log, traversals, keys, attempt)
		switch {
		case err == nil:
			text = t
			return nil
		case ctx.Err() != nil, isPermanent(err):
			return err
		default:
			log.Warn("traversal failed", "traversal", traversals, "max_traversals", c.maxRetries()+1)
			return retry.RetryableError(err)
		}
	})

	switch {
	case err == nil:
		return text, nil
	case ctx.Err() != nil:
		log.Info("call cancelled", "traversals", traversals)
		return "", fmt.Errorf("%w: %w", llm.ErrCancelled, ctx.Err())
	case errors.Is(err, llm.ErrAllCredentialsExhausted):
		log.Error("all providers exhausted", "traversals", traversals)
		return "", fmt.Errorf("%w after %d attempts: %w", llm.ErrAllProvidersExhausted, traversals, err)
	default:
		return "", err
	}
}

// traverse is one pass over the credential list with a fresh rotator.
// Per-key failures are logged and collected; only configuration errors and
// cancellation stop the pass early.
func (c *Controller) traverse(ctx context.Context, log *slog.Logger, traversal int, keys []string, attempt Attempt) (string, error) {
	rot := credentials.NewRotator(keys)
	errs := make([]error, 0, rot.Len()+1)
	errs = append(errs, llm.ErrAllCredentialsExhausted)

	for key, ok := rot.Next(); ok; key, ok = rot.Next() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := attempt(ctx, key)
		if err == nil {
			if rot.Position() > 1 || traversal > 1 {
				log.Info("call succeeded after fallback",
					"traversal", traversal,
					"credential", rot.Position(),
				)
			}
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if isPermanent(err) {
			return "", err
		}

		log.Warn("credential attempt failed",
			"traversal", traversal,
			"credential", rot.Position(),
			"credentials", rot.Len(),
			"key", credentials.Mask(key),
			"error", err,
		)
		errs = append(errs, fmt.Errorf("credential %d/%d: %w", rot.Position(), rot.Len(), err))
	}

	return "", errors.Join(errs...)
}

func (c *Controller) maxRetries() int {
	return max(c.MaxRetries, 0)
}

func (c *Controller) backoff() retry.Backoff {
	var b retry.Backoff
	if c.InitialBackoff <= 0 {
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	} else {
		b = retry.NewExponential(c.InitialBackoff)
		if c.MaxBackoff > 0 {
			b = retry.WithCappedDuration(c.MaxBackoff, b)
		}
	}
	return retry.WithMaxRetries(uint64(c.maxRetries()), b)
}

// isPermanent reports errors that no credential or retry can fix.
func isPermanent(err error) bool {
	return errors.Is(err, llm.ErrNoCredentials) ||
		errors.Is(err, llm.ErrUnknownBackend) ||
		errors.Is(err, llm.ErrFilesNotSupported) ||
		errors.Is(err, llm.ErrEmptyConversation)
}
