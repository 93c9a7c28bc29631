// Package daterange turns named presets into concrete date ranges for the
// dashboard and link-performance queries.
package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownPreset is returned when a preset name is not recognised.
var ErrUnknownPreset = errors.New("unknown date range preset")

// ErrCustomPreset is returned by FromPreset for Custom, which has no derived range.
var ErrCustomPreset = errors.New("custom preset has no derived range")

// Preset names a shorthand range.
type Preset string

// Known presets, in display order.
const (
	Day        Preset = "day"
	Week       Preset = "week"
	Last7Days  Preset = "7days"
	Month      Preset = "month"
	Last30Days Preset = "30days"
	Custom     Preset = "custom"
)

// Presets lists every preset in display order.
var Presets = []Preset{Day, Week, Last7Days, Month, Last30Days, Custom}

// Label returns the button caption for the preset.
func (p Preset) Label() string {
	switch p {
	case Day:
		return "Today"
	case Week:
		return "Week"
	case Last7Days:
		return "Last 7 Days"
	case Month:
		return "Month"
	case Last30Days:
		return "Last 30 Days"
	default:
		return "Custom"
	}
}

// Parse resolves a preset name.
func Parse(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Presets {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
}

// Range is a pair of instants. Ranges built from presets satisfy Start <= End.
type Range struct {
	Start time.Time
	End   time.Time
}

// Complete reports whether both bounds are set.
func (r Range) Complete() bool { return !r.Start.IsZero() && !r.End.IsZero() }

// FromPreset derives the range for p relative to ref. Calendar units are
// aligned in ref's location; weeks start on Sunday. Custom returns
// ErrCustomPreset because its bounds are chosen explicitly.
func FromPreset(p Preset, ref time.Time) (Range, error) {
	switch p {
	case Day:
		start := startOfDay(ref)
		return Range{Start: start, End: endOf(start.AddDate(0, 0, 1))}, nil
	case Week:
		start := startOfDay(ref).AddDate(0, 0, -int(ref.Weekday()))
		return Range{Start: start, End: endOf(start.AddDate(0, 0, 7))}, nil
	case Last7Days:
		return Range{Start: ref.AddDate(0, 0, -7), End: ref}, nil
	case Month:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		return Range{Start: start, End: endOf(start.AddDate(0, 1, 0))}, nil
	case Last30Days:
		return Range{Start: ref.AddDate(0, 0, -30), End: ref}, nil
	case Custom:
		return Range{}, ErrCustomPreset
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownPreset, string(p))
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOf returns the last representable instant before next.
func endOf(next time.Time) time.Time {
	return next.Add(-time.Nanosecond)
}
