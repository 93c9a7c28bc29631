package fetch

import (
	"context"
	"sync"

	"github.com/talentiave/cms/pkg/metrics"
)

// Key scopes a cycle to one view of one browser session. Subject narrows it
// to one record for views that show a single record.
type Key struct {
	Session string
	View    string
	Subject string
}

// Registry holds the cycles that have a fetch in flight. Settled cycles are
// released, so its size is bounded by concurrent requests.
type Registry struct {
	mu     sync.Mutex
	cycles map[Key]*Cycle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cycles: make(map[Key]*Cycle)}
}

// Begin starts a cycle for k, superseding any fetch in flight for the same key.
func (r *Registry) Begin(parent context.Context, k Key) (context.Context, *Cycle, Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[k]
	if !ok {
		c = &Cycle{}
		r.cycles[k] = c
	}
	ctx, t := c.Begin(parent)
	return ctx, c, t
}

// release drops the cycle for k when t is still its latest ticket.
func (r *Registry) release(k Key, t Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cycles[k]; ok && c == t.c && t.Current() {
		delete(r.cycles, k)
	}
}

// Len returns the number of tracked cycles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cycles)
}

// Outcome is what a view renders after Run.
type Outcome[T any] struct {
	State      State
	Value      T
	Err        error
	Superseded bool
}

// Run executes fn as a fetch cycle for k. When a newer Run for the same key
// starts before fn returns, fn's context is cancelled and the outcome is
// marked Superseded with a zero Value.
func Run[T any](ctx context.Context, r *Registry, k Key, fn func(context.Context) (T, error)) Outcome[T] {
	fctx, _, t := r.Begin(ctx, k)
	v, err := fn(fctx)
	state, serr, ok := t.settle(err)
	if !ok {
		metrics.RecordFetchSuperseded(k.View)
		return Outcome[T]{Superseded: true}
	}
	r.release(k, t)

	out := Outcome[T]{State: state, Err: serr}
	if state == Loaded {
		out.Value = v
	}
	return out
}
