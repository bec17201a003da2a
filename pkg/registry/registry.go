package registry

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/papercomputeco/switchboard/pkg/llm"
)

// ErrUnknownSelection is returned by New when the default key is not in the
// table.
var ErrUnknownSelection = errors.New("unknown selection")

// UserConfig is the per-call user tuning, as typed by the user.
type UserConfig struct {
	// Creativity is a decimal string such as "0.7". Empty means unset.
	Creativity string `json:"creativity,omitempty"`
}

// Registry is an immutable selection table with a default. It is safe for
// concurrent use.
type Registry struct {
	order      []string
	byKey      map[string]Descriptor
	defaultKey string
}

// New builds a Registry from descriptors. With no descriptors the built-in
// table is used. An empty defaultKey means DefaultKey.
func New(defaultKey string, descriptors ...Descriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		descriptors = builtin
	}
	if defaultKey == "" {
		defaultKey = DefaultKey
	}

	r := &Registry{
		order:      make([]string, 0, len(descriptors)),
		byKey:      make(map[string]Descriptor, len(descriptors)),
		defaultKey: defaultKey,
	}
	for _, d := range descriptors {
		if d.Key == "" {
			return nil, errors.New("selection with empty key")
		}
		if _, dup := r.byKey[d.Key]; dup {
			return nil, fmt.Errorf("duplicate selection %q", d.Key)
		}
		r.order = append(r.order, d.Key)
		r.byKey[d.Key] = d
	}

	if _, ok := r.byKey[defaultKey]; !ok {
		return nil, fmt.Errorf("default %q: %w", defaultKey, ErrUnknownSelection)
	}

	return r, nil
}

// Default returns the key used for unknown selections.
func (r *Registry) Default() string {
	return r.defaultKey
}

// Lookup returns the descriptor for key without falling back.
func (r *Registry) Lookup(key string) (Descriptor, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// Resolve returns the descriptor for key, or the default descriptor when key
// is empty or unknown.
func (r *Registry) Resolve(key string) Descriptor {
	if d, ok := r.byKey[key]; ok {
		return d
	}
	return r.byKey[r.defaultKey]
}

// Keys returns the selection keys in declaration order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptors returns every descriptor in declaration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byKey[k])
	}
	return out
}

func (r *Registry) SupportsFiles(key string) bool {
	return r.Resolve(key).Capabilities.FileUpload
}

func (r *Registry) SupportsFunctionCalling(key string) bool {
	return r.Resolve(key).Capabilities.FunctionCalling
}

func (r *Registry) SupportsStreaming(key string) bool {
	return r.Resolve(key).Capabilities.Streaming
}

// OptionsFor derives the call options for a selection. Creativity becomes the
// temperature, clamped to be non-negative and rounded to one decimal place;
// "-1" gives 0.0 and "0.73" gives 0.7. A missing or unparseable value leaves
// the temperature unset. Every current selection maps creativity the same
// way.
func (r *Registry) OptionsFor(_ string, uc UserConfig) llm.CallOptions {
	var opts llm.CallOptions
	if t, ok := parseCreativity(uc.Creativity); ok {
		opts.Temperature = &t
	}
	return opts
}

func parseCreativity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, false
	}
	return roundTenths(max(t, 0)), true
}

// roundTenths rounds t >= 0 to one decimal place using the exact binary value
// of t, so 0.35 (stored just below 0.35) rounds down. Exact ties round up.
func roundTenths(t float64) float64 {
	x := new(big.Float).SetPrec(128).SetFloat64(t)
	x.Mul(x, big.NewFloat(10))

	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(x, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	f, _ := new(big.Float).SetInt(n).Float64()
	return f / 10
}
