package credentials

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/switchboard/pkg/llm"
)

// Parse splits a comma-separated credential string into an ordered list.
// Whitespace around each entry is trimmed and empty entries are dropped, so
// "a, b ,c" yields ["a", "b", "c"].
func Parse(raw string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ForBackend returns the credential list for one call. Backends that need no
// credential get a single empty placeholder so the caller still makes exactly
// one attempt per traversal.
func ForBackend(backend, raw string, required bool) ([]string, error) {
	if !required {
		return []string{""}, nil
	}

	keys := Parse(raw)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: %w", backend, llm.ErrNoCredentials)
	}
	return keys, nil
}

// Rotator hands out credentials one at a time, strictly in order. A Rotator
// covers a single traversal and is not safe for concurrent use; create a new
// one for every attempt at the whole pipeline.
type Rotator struct {
	keys []string
	next int
}

// NewRotator returns a Rotator positioned at the first key.
func NewRotator(keys []string) *Rotator {
	return &Rotator{keys: keys}
}

// Next returns the next untried key, or false once every key has been handed
// out.
func (r *Rotator) Next() (string, bool) {
	if r.next >= len(r.keys) {
		return "", false
	}
	key := r.keys[r.next]
	r.next++
	return key, true
}

// Len returns the total number of keys in the rotation.
func (r *Rotator) Len() int {
	return len(r.keys)
}

// Position returns the 1-based index of the key most recently returned by
// Next, for log output.
func (r *Rotator) Position() int {
	return r.next
}

// Mask returns a log-safe rendering of a credential.
func Mask(key string) string {
	switch {
	case key == "":
		return "<none>"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}
