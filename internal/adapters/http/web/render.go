package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/talentiave/cms/internal/views"
)

//go:embed templates/*.html
var templateFS embed.FS

// HXRequest is the header htmx sets on its requests.
const HXRequest = "HX-Request"

// isHTMX reports whether r was issued by htmx and expects a fragment.
func isHTMX(r *http.Request) bool {
	return r != nil && strings.EqualFold(r.Header.Get(HXRequest), "true")
}

// page names; each is parsed together with its layout.
const (
	pageLogin     = "auth"
	pageDashboard = "dashboard"
	pageTalents   = "talents"
	pageTalent    = "talent"
	pageConfirm   = "confirm"
	pageCompanies = "companies"
	pageError     = "error"
)

var layouts = map[string]string{
	pageLogin:     "layout_auth",
	pageDashboard: "layout_admin",
	pageTalents:   "layout_admin",
	pageTalent:    "layout_admin",
	pageConfirm:   "layout_admin",
	pageCompanies: "layout_admin",
	pageError:     "layout_admin",
}

// pages holds one template set per page.
type pages struct {
	sets map[string]*template.Template
}

func parsePages() (*pages, error) {
	p := &pages{sets: make(map[string]*template.Template, len(layouts))}
	for name, layout := range layouts {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/"+layout+".html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, name, err)
		}
		p.sets[name] = t
	}
	return p, nil
}

// component returns the full page, or one named block of it when block is set.
func (p *pages) component(page, block string, data any) (templ.Component, error) {
	set, ok := p.sets[page]
	if !ok {
		return nil, fmt.Errorf("%w: unknown page %q", ErrTemplate, page)
	}
	name := block
	if name == "" {
		name = layouts[page]
	}
	t := set.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("%w: %s has no block %q", ErrTemplate, page, name)
	}
	return templ.FromGoHTML(t, data), nil
}

var templateFuncs = template.FuncMap{
	"count": views.FormatCount,
	"shortDate": func(t time.Time) string {
		if t.IsZero() {
			return "N/A"
		}
		return t.Format("Jan 2, 2006")
	},
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"deref64": func(v *int64) int64 {
		if v == nil {
			return 0
		}
		return *v
	},
}
