package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName names the session cookie.
const DefaultCookieName = "cms_session"

// Manager binds browser cookies to Store entries.
type Manager struct {
	store      Store
	cookieName string
	secure     bool
	ttl        time.Duration
	now        func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCookieName overrides DefaultCookieName.
func WithCookieName(name string) ManagerOption {
	return func(m *Manager) {
		if strings.TrimSpace(name) != "" {
			m.cookieName = name
		}
	}
}

// WithSecureCookie marks the cookie Secure.
func WithSecureCookie(secure bool) ManagerOption {
	return func(m *Manager) { m.secure = secure }
}

// WithTTL sets how long an idle session is retained.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager over store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		cookieName: DefaultCookieName,
		ttl:        12 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string { return m.cookieName }

// Open returns the Handle for the request's session. Requests without a
// known session get a fresh id and a Set-Cookie on w; client-chosen ids that
// the store does not know are never adopted.
func (m *Manager) Open(w http.ResponseWriter, r *http.Request) (*Handle, error) {
	if c, err := r.Cookie(m.cookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			h, lerr := m.Attach(r.Context(), c.Value)
			if lerr == nil {
				h.rotate = m.rotator(w)
				return h, nil
			}
			if !errors.Is(lerr, ErrNotFound) {
				return nil, lerr
			}
		}
	}
	id := uuid.NewString()
	m.setCookie(w, id)
	return newHandle(id, m.store, Data{}, m.ttl, m.now, m.rotator(w)), nil
}

// Attach loads an existing session by id.
func (m *Manager) Attach(ctx context.Context, id string) (*Handle, error) {
	data, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return newHandle(id, m.store, data, m.ttl, m.now, nil), nil
}

// Destroy deletes the session entry and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, h *Handle) error {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	if h == nil {
		return nil
	}
	h.mu.Lock()
	h.data = Data{}
	id := h.id
	h.mu.Unlock()
	return m.store.Delete(ctx, id)
}

// rotator re-issues the cookie on w, replacing one already queued for this
// response.
func (m *Manager) rotator(w http.ResponseWriter) func(string) {
	return func(id string) {
		prefix := m.cookieName + "="
		var kept []string
		for _, c := range w.Header().Values("Set-Cookie") {
			if !strings.HasPrefix(c, prefix) {
				kept = append(kept, c)
			}
		}
		w.Header().Del("Set-Cookie")
		for _, c := range kept {
			w.Header().Add("Set-Cookie", c)
		}
		m.setCookie(w, id)
	}
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
