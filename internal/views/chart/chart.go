// Package chart lays out the dashboard's trend chart as SVG coordinates.
package chart

import (
	"fmt"
	"strings"

	"github.com/talentiave/cms/internal/domain/model"
)

// Dashboard chart styling.
const (
	DatasetLabel = "New Entries"
	Stroke       = "#244c56"
	Fill         = "rgba(36, 76, 86, 0.2)"
)

// Default canvas size in SVG user units.
const (
	DefaultWidth  = 640
	DefaultHeight = 280
	padding       = 36
	ticks         = 4
)

// Point is one plotted value.
type Point struct {
	Label string
	Value int64
	X, Y  float64
}

// Tick is a horizontal grid line from X1 to X2.
type Tick struct {
	Value  int64
	Y      float64
	X1, X2 float64
}

// Line is a laid-out single-series line chart.
type Line struct {
	Label         string
	Width, Height float64
	Points        []Point
	Ticks         []Tick
	Baseline      float64
	// LabelY is where the category labels sit, below the baseline.
	LabelY float64
}

// Series is one labeled value.
type Series struct {
	Label string
	Value int64
}

// FromStats returns the dashboard series in display order.
func FromStats(s model.DashboardStats) []Series {
	return []Series{
		{Label: "Talents", Value: s.Talents},
		{Label: "Proposals", Value: s.Proposals},
		{Label: "Companies", Value: s.Companies},
		{Label: "Jobs", Value: s.Jobs},
	}
}

// Layout scales series into a width x height canvas. The y axis starts at zero
// and tops out at a rounded maximum so grid lines land on whole numbers.
func Layout(series []Series, width, height float64) Line {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	l := Line{Label: DatasetLabel, Width: width, Height: height, Baseline: height - padding, LabelY: height - padding/3}

	top := niceMax(maxValue(series))
	plotW := width - 2*padding
	plotH := height - 2*padding

	for i := 0; i <= ticks; i++ {
		v := top * int64(i) / ticks
		l.Ticks = append(l.Ticks, Tick{
			Value: v,
			Y:     l.Baseline - float64(v)/float64(top)*plotH,
			X1:    padding,
			X2:    width - padding,
		})
	}

	step := 0.0
	if len(series) > 1 {
		step = plotW / float64(len(series)-1)
	}
	for i, s := range series {
		x := padding + step*float64(i)
		if len(series) == 1 {
			x = padding + plotW/2
		}
		v := s.Value
		if v < 0 {
			v = 0
		}
		l.Points = append(l.Points, Point{
			Label: s.Label,
			Value: s.Value,
			X:     x,
			Y:     l.Baseline - float64(v)/float64(top)*plotH,
		})
	}
	return l
}

// Polyline returns the points attribute of the series line.
func (l Line) Polyline() string {
	parts := make([]string, 0, len(l.Points))
	for _, p := range l.Points {
		parts = append(parts, coord(p.X, p.Y))
	}
	return strings.Join(parts, " ")
}

// Area returns the points attribute of the filled region under the line.
func (l Line) Area() string {
	if len(l.Points) == 0 {
		return ""
	}
	first, last := l.Points[0], l.Points[len(l.Points)-1]
	return coord(first.X, l.Baseline) + " " + l.Polyline() + " " + coord(last.X, l.Baseline)
}

func coord(x, y float64) string { return fmt.Sprintf("%.1f,%.1f", x, y) }

func maxValue(series []Series) int64 {
	var m int64
	for _, s := range series {
		if s.Value > m {
			m = s.Value
		}
	}
	return m
}

// niceMax rounds m up to 1, 2 or 5 times a power of ten, never below ticks.
func niceMax(m int64) int64 {
	if m <= ticks {
		return ticks
	}
	pow := int64(1)
	for pow*10 <= m {
		pow *= 10
	}
	for _, f := range []int64{1, 2, 5, 10} {
		if f*pow >= m {
			return f * pow
		}
	}
	return 10 * pow
}
