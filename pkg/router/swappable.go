package router

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/registry"
)

// Swappable serves calls from whichever Router it currently holds. A call
// that has started keeps the Router it started with, so a swap never changes
// configuration under an in-flight call.
type Swappable struct {
	cur atomic.Pointer[Router]
}

// NewSwappable returns a Swappable holding r.
func NewSwappable(r *Router) *Swappable {
	s := &Swappable{}
	s.cur.Store(r)
	return s
}

// Swap installs r and returns the Router it replaced. The caller owns the
// returned Router; its Close blocks until the calls still using it finish.
func (s *Swappable) Swap(r *Router) *Router {
	return s.cur.Swap(r)
}

// Current returns the Router new calls are sent to.
func (s *Swappable) Current() *Router {
	return s.cur.Load()
}

// Generate sends the call to the current Router. A call that races a swap
// and reaches the retired Router after it closed is sent again to its
// replacement.
func (s *Swappable) Generate(ctx context.Context, conv llm.Conversation, key string, uc registry.UserConfig, sink llm.StreamSink) (string, error) {
	for {
		rt := s.cur.Load()
		text, err := rt.Generate(ctx, conv, key, uc, sink)
		if errors.Is(err, ErrClosed) && s.cur.Load() != rt {
			continue
		}
		return text, err
	}
}

func (s *Swappable) Registry() *registry.Registry {
	return s.cur.Load().Registry()
}

// Close closes the current Router.
func (s *Swappable) Close() error {
	return s.cur.Load().Close()
}
