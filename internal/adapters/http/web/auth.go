package web

import (
	"net/http"

	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/views"
	"github.com/talentiave/cms/pkg/logger"
)

func authForm(r *http.Request) (views.AuthForm, bool) {
	return views.Forms(views.AuthKind(r.PathValue("form")))
}

// handleAuthForm renders an empty login, register or forgot-password form.
func (s *Server) handleAuthForm(w http.ResponseWriter, r *http.Request) {
	form, ok := authForm(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, r, http.StatusOK, pageLogin, "", s.views.AuthPage(form))
}

// handleAuthSubmit posts the form to the backend and lands on the dashboard
// on success.
func (s *Server) handleAuthSubmit(w http.ResponseWriter, r *http.Request) {
	form, ok := authForm(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, pageLogin, "", views.AuthState{Form: form, Error: ErrBadRequest.Error()})
		return
	}
	state := s.views.SubmitAuth(r.Context(), sessionOf(r), form, views.AuthInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if state.Redirect != "" {
		redirect(w, r, state.Redirect)
		return
	}
	status := http.StatusOK
	if state.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, r, status, pageLogin, "", state)
}

// handleLogout destroys the session and returns to the login page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(r.Context(), w, sessionOf(r)); err != nil {
		s.log.Warn(r.Context(), "failed to destroy session", logger.Error(err))
	}
	redirect(w, r, backend.LoginPath)
}
