package web

import (
	"net/http"
	"net/url"
	"time"

	"github.com/talentiave/cms/internal/daterange"
	"github.com/talentiave/cms/internal/fetch"
	"github.com/talentiave/cms/internal/views"
	"github.com/talentiave/cms/internal/views/chart"
)

// dateLayout is the value format of <input type="date">.
const dateLayout = "2006-01-02"

// parseDay reads a date input as the start of that day in loc. Empty or
// malformed values yield the zero time.
func parseDay(v string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseDayEnd reads a date input as the last instant of that day in loc.
func parseDayEnd(v string, loc *time.Location) time.Time {
	t := parseDay(v, loc)
	if t.IsZero() {
		return t
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// parseInstant reads an exact bound carried by a preset link.
func parseInstant(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// dashboardQuery reads the selection from q. Typed start and end dates are
// day aligned and win over the exact from and to bounds of a preset link.
func (s *Server) dashboardQuery(q url.Values) views.DashboardQuery {
	var dq views.DashboardQuery
	if p, err := daterange.Parse(q.Get("range")); err == nil {
		dq.Preset = p
	}
	dq.Start = parseDay(q.Get("start"), s.loc)
	if dq.Start.IsZero() {
		dq.Start = parseInstant(q.Get("from"))
	}
	dq.End = parseDayEnd(q.Get("end"), s.loc)
	if dq.End.IsZero() {
		dq.End = parseInstant(q.Get("to"))
	}
	dq.Links = daterange.Range{
		Start: parseDay(q.Get("links_start"), s.loc),
		End:   parseDayEnd(q.Get("links_end"), s.loc),
	}
	return dq
}

type presetLink struct {
	Label  string
	Href   string
	Active bool
}

type dashboardPage struct {
	State   views.DashboardState
	Presets []presetLink
	Chart   *chart.Line
	// Raw query values echoed into the date inputs.
	Range, Start, End, LinksStart, LinksEnd string
}

func presetLinks(sel daterange.Selection, q url.Values) []presetLink {
	links := make([]presetLink, 0, len(daterange.Presets))
	for _, p := range daterange.Presets {
		v := url.Values{}
		v.Set("range", string(p))
		if p == daterange.Custom {
			// Keep the bounds already chosen, to the instant.
			r := sel.Range()
			if !r.Start.IsZero() {
				v.Set("from", r.Start.Format(time.RFC3339Nano))
			}
			if !r.End.IsZero() {
				v.Set("to", r.End.Format(time.RFC3339Nano))
			}
		}
		for _, k := range []string{"links_start", "links_end"} {
			if q.Get(k) != "" {
				v.Set(k, q.Get(k))
			}
		}
		links = append(links, presetLink{Label: p.Label(), Href: "/admin?" + v.Encode(), Active: sel.Preset() == p})
	}
	return links
}

// handleDashboard renders the stats cards, trend chart and links table.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nav := &redirector{}
	state := s.views.Dashboard(r.Context(), sessionOf(r), nav, s.dashboardQuery(q))
	if nav.follow(w, r) {
		return
	}
	if state.Superseded() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	page := dashboardPage{
		State:      state,
		Presets:    presetLinks(state.Selection, q),
		Range:      string(state.Selection.Preset()),
		LinksStart: q.Get("links_start"),
		LinksEnd:   q.Get("links_end"),
	}
	rng := state.Selection.Range()
	if !rng.Start.IsZero() {
		page.Start = rng.Start.In(s.loc).Format(dateLayout)
	}
	if !rng.End.IsZero() {
		page.End = rng.End.In(s.loc).Format(dateLayout)
	}
	if state.Stats.State == fetch.Loaded && state.Stats.Value != nil {
		line := chart.Layout(chart.FromStats(*state.Stats.Value), chart.DefaultWidth, chart.DefaultHeight)
		page.Chart = &line
	}
	s.render(w, r, http.StatusOK, pageDashboard, "", s.layout(r, "Dashboard", "dashboard", page))
}

// handleLinks renders the links table alone; htmx swaps it in when the
// filter is applied.
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !isHTMX(r) {
		http.Redirect(w, r, "/admin?"+q.Encode(), http.StatusSeeOther)
		return
	}
	applied := daterange.Range{
		Start: parseDay(q.Get("links_start"), s.loc),
		End:   parseDayEnd(q.Get("links_end"), s.loc),
	}
	nav := &redirector{}
	state := s.views.Links(r.Context(), sessionOf(r), nav, applied)
	if nav.follow(w, r) {
		return
	}
	if state.Result.Superseded {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	page := dashboardPage{
		State:      views.DashboardState{Links: state},
		LinksStart: q.Get("links_start"),
		LinksEnd:   q.Get("links_end"),
	}
	s.render(w, r, http.StatusOK, pageDashboard, "links", s.layout(r, "Dashboard", "dashboard", page))
}
