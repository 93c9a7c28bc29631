package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talentiave/cms/pkg/metrics"
)

// Handle is one browser session as seen by a single request. Components that
// need the credential receive the Handle explicitly rather than reaching for
// shared state.
type Handle struct {
	mu    sync.Mutex
	id    string
	store Store
	ttl   time.Duration
	now   func() time.Time
	data  Data
	// rotate re-issues the cookie after the id changes. Nil when the handle
	// was attached without a response to write to.
	rotate func(id string)
}

func newHandle(id string, store Store, data Data, ttl time.Duration, now func() time.Time, rotate func(string)) *Handle {
	return &Handle{id: id, store: store, data: data, ttl: ttl, now: now, rotate: rotate}
}

// ID returns the opaque session id carried in the cookie. It changes when a
// credential is stored.
func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// Credential returns the bearer token, if one is held.
func (h *Handle) Credential() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data.Credential, h.data.Credential != ""
}

// Identity peeks at the held credential. See PeekIdentity.
func (h *Handle) Identity() Identity {
	cred, ok := h.Credential()
	if !ok {
		return Identity{}
	}
	id, _ := PeekIdentity(cred)
	return id
}

// SetCredential stores token for the rest of the browser session. The
// session moves to a fresh id, so an id known before sign-in never carries
// the credential.
func (h *Handle) SetCredential(ctx context.Context, token string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := uuid.NewString()
	data := h.data
	data.Credential = token
	if err := h.store.Save(ctx, next, data, h.ttlFor(token)); err != nil {
		return err
	}
	// A failed delete leaves an entry without a cookie; it expires on its own.
	_ = h.store.Delete(ctx, h.id)

	h.id = next
	h.data = data
	if h.rotate != nil {
		h.rotate(next)
	}
	metrics.RecordSessionCreated()
	return nil
}

// ClearCredential forgets the credential. Clearing an empty session is a no-op
// apart from the storage round trip.
func (h *Handle) ClearCredential(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data.Credential = ""
	return h.store.SetField(ctx, h.id, FieldCredential, "", h.ttl)
}

// SetFlash stores a message to be shown on the next page render.
func (h *Handle) SetFlash(ctx context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data.Flash = msg
	return h.store.SetField(ctx, h.id, FieldFlash, msg, h.ttlFor(h.data.Credential))
}

// TakeFlash returns and clears the pending flash message.
func (h *Handle) TakeFlash(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg := h.data.Flash
	if msg == "" {
		return "", nil
	}
	h.data.Flash = ""
	return msg, h.store.SetField(ctx, h.id, FieldFlash, "", h.ttl)
}

// ttlFor caps the configured retention at the credential's own expiry when
// it carries one.
func (h *Handle) ttlFor(credential string) time.Duration {
	ttl := h.ttl
	if credential == "" {
		return ttl
	}
	id, ok := PeekIdentity(credential)
	if !ok || id.ExpiresAt.IsZero() {
		return ttl
	}
	if left := id.ExpiresAt.Sub(h.now()); left > 0 && left < ttl {
		return left
	}
	return ttl
}

type handleKey struct{}

// WithHandle returns a context carrying h.
func WithHandle(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, handleKey{}, h)
}

// FromContext returns the Handle stored by WithHandle.
func FromContext(ctx context.Context) (*Handle, bool) {
	h, ok := ctx.Value(handleKey{}).(*Handle)
	return h, ok && h != nil
}
