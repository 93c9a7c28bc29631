// Package web serves the console's HTML pages. Handlers parse the request,
// call a views controller with the request's session and a redirector, and
// render the returned state.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/session"
	"github.com/talentiave/cms/internal/views"
	"github.com/talentiave/cms/pkg/logger"
)

// Server wires the console's HTML routes.
type Server struct {
	views    *views.Views
	sessions *session.Manager
	pages    *pages
	health   *HealthHandler
	log      logger.Logger
	loc      *time.Location
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLocation sets the zone date inputs are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewServer creates the console server. It fails only when the embedded
// templates do not parse.
func NewServer(v *views.Views, sessions *session.Manager, opts ...Option) (*Server, error) {
	p, err := parsePages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		views:    v,
		sessions: sessions,
		pages:    p,
		health:   NewHealthHandler(),
		log:      logger.Nop(),
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register attaches all console routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))

	mux.HandleFunc("GET /{$}", s.page("root", s.handleRoot))

	mux.HandleFunc("GET /auth/{form}", s.page("auth", s.handleAuthForm))
	mux.HandleFunc("POST /auth/{form}", s.page("auth", s.handleAuthSubmit))
	mux.HandleFunc("POST /auth/logout", s.page("logout", s.handleLogout))

	mux.HandleFunc("GET /admin", s.admin("dashboard", s.handleDashboard))
	mux.HandleFunc("GET /admin/links", s.admin("links", s.handleLinks))
	mux.HandleFunc("GET /admin/talents", s.admin("talents", s.handleTalents))
	mux.HandleFunc("GET /admin/talents/{id}", s.admin("talent", s.handleTalent))
	mux.HandleFunc("POST /admin/talents/{id}", s.admin("talent", s.handleTalentSave))
	mux.HandleFunc("GET /admin/talents/{id}/{action}", s.admin("talent_status", s.handleStatusConfirm))
	mux.HandleFunc("POST /admin/talents/{id}/{action}", s.admin("talent_status", s.handleStatusChange))
	mux.HandleFunc("GET /admin/companies", s.admin("companies", s.handleCompanies))
}

// layoutData is what every admin page template receives.
type layoutData struct {
	Title  string
	Active string
	User   string
	Body   any
}

func (s *Server) layout(r *http.Request, title, active string, body any) layoutData {
	d := layoutData{Title: title, Active: active, Body: body}
	if h, ok := session.FromContext(r.Context()); ok {
		d.User = h.Identity().Label()
	}
	return d
}

// render writes page, or only block of it when block is set, with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, block string, data any) {
	c, err := s.pages.component(page, block, data)
	if err != nil {
		s.log.Error(r.Context(), "render failed", logger.String("page", page), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

// renderError shows msg on the admin error page.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, pageError, "", s.layout(r, "Error", "", msg))
}

// sessionOf returns the request's session handle. withSession guarantees one
// on every HTML route.
func sessionOf(r *http.Request) *session.Handle {
	h, _ := session.FromContext(r.Context())
	return h
}

// handleRoot sends the browser to the dashboard or the login page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	h := sessionOf(r)
	if h != nil {
		if _, ok := h.Credential(); ok {
			http.Redirect(w, r, views.AdminHome, http.StatusSeeOther)
			return
		}
	}
	http.Redirect(w, r, backend.LoginPath, http.StatusSeeOther)
}

// handleCompanies renders the companies placeholder.
func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageCompanies, "", s.layout(r, "Companies", "companies", nil))
}
