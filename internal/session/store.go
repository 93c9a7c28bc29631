// Package session keeps the administrator's credential server-side, keyed by
// an opaque cookie, and exposes it to handlers through a request-scoped Handle.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for session storage.
var (
	ErrNotFound     = errors.New("session not found")
	ErrStore        = errors.New("session store failure")
	ErrUnknownField = errors.New("unknown session field")
)

// Data is the persisted state of one browser session.
type Data struct {
	Credential string `json:"credential,omitempty"`
	Flash      string `json:"flash,omitempty"`
}

// Empty reports whether there is nothing worth persisting.
func (d Data) Empty() bool { return d.Credential == "" && d.Flash == "" }

// Field names one independently written part of Data.
type Field string

// Session fields.
const (
	FieldCredential Field = "credential"
	FieldFlash      Field = "flash"
)

// With returns d with field f set to value.
func (d Data) With(f Field, value string) (Data, error) {
	switch f {
	case FieldCredential:
		d.Credential = value
	case FieldFlash:
		d.Flash = value
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return d, nil
}

// Store persists session data by id. Implementations must be safe for
// concurrent use.
type Store interface {
	// Load returns ErrNotFound for unknown or expired ids.
	Load(ctx context.Context, id string) (Data, error)
	// Save replaces the entry and sets its time to live.
	Save(ctx context.Context, id string, data Data, ttl time.Duration) error
	// SetField writes one field and leaves the others as stored. A non-empty
	// value refreshes the time to live; an empty one removes the field, and
	// an entry left with no fields is deleted.
	SetField(ctx context.Context, id string, f Field, value string, ttl time.Duration) error
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
}
