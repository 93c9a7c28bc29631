package views

import (
	"context"
	"time"

	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/daterange"
	"github.com/talentiave/cms/internal/domain/model"
	"github.com/talentiave/cms/internal/fetch"
	"golang.org/x/sync/errgroup"
)

// DefaultPreset is applied when the dashboard is opened without a range.
const DefaultPreset = daterange.Day

// DashboardQuery is the dashboard's request state.
type DashboardQuery struct {
	Preset daterange.Preset
	// Start and End carry the bounds while Preset is custom.
	Start time.Time
	End   time.Time
	// Links is the applied links filter; ignored unless both bounds are set.
	Links daterange.Range
}

// StatCard is one counter on the dashboard.
type StatCard struct {
	Title string
	Value int64
}

// Formatted renders the value with separators.
func (c StatCard) Formatted() string { return FormatCount(c.Value) }

// DashboardState is what the dashboard template renders.
type DashboardState struct {
	Selection daterange.Selection
	Stats     fetch.Outcome[*model.DashboardStats]
	Links     LinksState
	// NeedsRange is set while a custom range is missing a bound.
	NeedsRange bool
}

// Cards returns the stat cards in display order, zero-valued until loaded.
func (s DashboardState) Cards() []StatCard {
	var st model.DashboardStats
	if s.Stats.Value != nil {
		st = *s.Stats.Value
	}
	return []StatCard{
		{Title: "New Talents", Value: st.Talents},
		{Title: "New Proposals", Value: st.Proposals},
		{Title: "New Companies", Value: st.Companies},
		{Title: "New Job Offers", Value: st.Jobs},
	}
}

// Superseded reports whether any part of the page was overtaken by a newer request.
func (s DashboardState) Superseded() bool {
	return s.Stats.Superseded || s.Links.Result.Superseded
}

// LinksState is what the links table renders.
type LinksState struct {
	Applied daterange.Range
	Result  fetch.Outcome[[]model.Link]
}

// Filtered reports whether the applied range reached the backend.
func (s LinksState) Filtered() bool { return s.Applied.Complete() }

// Selection resolves the preset picker state for q relative to the current time.
// Unknown presets fall back to DefaultPreset.
func (v *Views) Selection(q DashboardQuery) daterange.Selection {
	now := v.now()
	sel, _ := daterange.NewSelection(DefaultPreset, now)
	if q.Preset == "" {
		return sel
	}
	if q.Preset == daterange.Custom {
		_ = sel.Choose(daterange.Custom, now)
		if !q.Start.IsZero() {
			sel.SetStart(q.Start)
		}
		if !q.End.IsZero() {
			sel.SetEnd(q.End)
		}
		return sel
	}
	_ = sel.Choose(q.Preset, now)
	return sel
}

// Dashboard loads stats and links for q concurrently, each in its own cycle.
func (v *Views) Dashboard(ctx context.Context, sess Session, nav backend.Navigator, q DashboardQuery) DashboardState {
	state := DashboardState{Selection: v.Selection(q)}
	r := state.Selection.Range()

	var g errgroup.Group
	if r.Complete() {
		g.Go(func() error {
			state.Stats = fetch.Run(ctx, v.fetches, key(sess, ViewStats), func(fctx context.Context) (*model.DashboardStats, error) {
				return v.api.Stats(fctx, sess, nav, r)
			})
			return nil
		})
	} else {
		state.NeedsRange = true
	}
	g.Go(func() error {
		state.Links = v.links(ctx, sess, nav, q.Links)
		return nil
	})
	_ = g.Wait()

	return state
}

// Links loads the links table alone.
func (v *Views) Links(ctx context.Context, sess Session, nav backend.Navigator, applied daterange.Range) LinksState {
	return v.links(ctx, sess, nav, applied)
}

func (v *Views) links(ctx context.Context, sess Session, nav backend.Navigator, applied daterange.Range) LinksState {
	return LinksState{
		Applied: applied,
		Result: fetch.Run(ctx, v.fetches, key(sess, ViewLinks), func(fctx context.Context) ([]model.Link, error) {
			return v.api.Links(fctx, sess, nav, applied)
		}),
	}
}
