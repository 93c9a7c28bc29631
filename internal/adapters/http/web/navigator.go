package web

import (
	"net/http"
	"sync"
)

// redirector records where a backend call asked the browser to go. Page
// handlers check it after every controller call; the first target wins.
type redirector struct {
	mu     sync.Mutex
	target string
}

// Navigate implements backend.Navigator.
func (n *redirector) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.target == "" {
		n.target = path
	}
}

// Target returns the recorded destination, if any.
func (n *redirector) Target() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target, n.target != ""
}

// follow sends the pending redirect, if any, and reports whether it did.
func (n *redirector) follow(w http.ResponseWriter, r *http.Request) bool {
	target, ok := n.Target()
	if !ok {
		return false
	}
	redirect(w, r, target)
	return true
}

// redirect sends the browser to target. htmx requests get HX-Redirect so the
// whole page moves instead of a fragment swap.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
