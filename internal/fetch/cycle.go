// Package fetch tracks the load cycle of each data view so that only the most
// recent request for a view may publish its result.
package fetch

import (
	"context"
	"errors"
	"sync"

	"github.com/talentiave/cms/internal/backend"
)

// State of a view's fetch cycle.
type State int

// Cycle states.
const (
	Idle State = iota
	Loading
	Loaded
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Cycle is the state machine for one view:
//
//	Idle/Loaded/Errored --Begin--> Loading
//	Loading --Settle(nil)--> Loaded
//	Loading --Settle(err)--> Errored
//	Loading --Settle(aborted)--> Idle
//
// Begin cancels any fetch still in flight; that fetch's Settle is then a no-op.
type Cycle struct {
	mu     sync.Mutex
	state  State
	err    error
	gen    uint64
	cancel context.CancelFunc
}

// Ticket identifies one Begin call.
type Ticket struct {
	c   *Cycle
	gen uint64
}

// Begin starts a new fetch derived from parent and supersedes the previous one.
func (c *Cycle) Begin(parent context.Context) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.cancel = cancel
	c.state = Loading
	c.err = nil
	return ctx, Ticket{c: c, gen: c.gen}
}

// Settle records the outcome of the ticket's fetch. It returns false, leaving
// the cycle untouched, when a newer Begin has superseded the ticket.
func (t Ticket) Settle(err error) bool {
	_, _, ok := t.settle(err)
	return ok
}

func (t Ticket) settle(err error) (State, error, bool) {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.gen != c.gen {
		return c.state, c.err, false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	switch {
	case err == nil:
		c.state, c.err = Loaded, nil
	case errors.Is(err, backend.ErrAborted):
		c.state, c.err = Idle, nil
	default:
		c.state, c.err = Errored, err
	}
	return c.state, c.err, true
}

// Current reports whether the ticket is still the latest for its cycle.
func (t Ticket) Current() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.gen == t.c.gen
}

// Snapshot returns the current state and the error recorded by the last
// Errored settlement.
func (c *Cycle) Snapshot() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.err
}
