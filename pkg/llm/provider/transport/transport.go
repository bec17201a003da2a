// Package transport holds the HTTP plumbing shared by the provider adapters.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/utils"
)

const (
	// DefaultTimeout bounds a single request. Generations can be slow, so this
	// is generous.
	DefaultTimeout = 5 * time.Minute

	// maxErrorBody caps how much of an upstream error body is read and kept.
	maxErrorBody = 4096

	// errorBodyDisplay is the length kept on a TransportError.
	errorBodyDisplay = 512
)

// Config is the per-backend construction config for an adapter.
type Config struct {
	// BaseURL is the backend API root, without a trailing slash.
	BaseURL string

	// HTTPClient defaults to a client with DefaultTimeout.
	HTTPClient *http.Client

	// Fs is where attachments are read from. nil means the OS filesystem.
	Fs afero.Fs

	// MaxOutputTokens is the backend output ceiling. 0 means the adapter's
	// own default.
	MaxOutputTokens int
}

// Client returns the configured HTTP client or a default one.
func (c Config) Client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// URL joins path onto the base URL.
func (c Config) URL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

// MaxTokens resolves the output ceiling: per-call options first, then the
// backend config, then def.
func (c Config) MaxTokens(opts llm.CallOptions, def int) int {
	if c.MaxOutputTokens > 0 {
		def = c.MaxOutputTokens
	}
	return opts.MaxOutputTokensOr(def)
}

// PostJSON marshals payload, posts it to url with the given headers, and
// returns the response once a 2xx status has been confirmed. Any other status
// is drained into a *llm.TransportError. The caller must close the body.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, headers http.Header, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", provider, err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &llm.TransportError{Provider: provider, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &llm.TransportError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Body:       utils.Truncate(strings.TrimSpace(string(body)), errorBodyDisplay),
		}
	}

	return resp, nil
}

// DecodeJSON reads and closes resp.Body into v.
func DecodeJSON(provider string, resp *http.Response, v any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &llm.TransportError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", provider, err)
	}
	return nil
}

// ErrStreamTruncated means a streaming body ended before the backend's
// end-of-stream marker. The partial text is discarded and the attempt fails
// like any other transport error.
var ErrStreamTruncated = errors.New("stream ended before completion")

// StreamError wraps a failure that happened while reading a streaming body.
func StreamError(provider string, err error) error {
	return &llm.TransportError{Provider: provider, Err: fmt.Errorf("read stream: %w", err)}
}
