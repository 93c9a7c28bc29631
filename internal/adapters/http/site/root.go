// Package site serves the console's embedded static assets.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Prefix is the URL path the assets are mounted under.
const Prefix = "/static/"

// ErrServe reports a failure to mount the assets.
var ErrServe = errors.New("static assets serve failed")

// Register attaches the static asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET "+Prefix, Handler())
}

// Handler serves the embedded assets below Prefix. Directory listings are
// not exposed.
func Handler() http.Handler {
	files := http.StripPrefix(Prefix, http.FileServer(FS()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == Prefix {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
