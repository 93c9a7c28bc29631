package daterange

import (
	"time"
)

// Selection is the user-controlled range state behind a preset picker.
//
// Choosing a preset overwrites both bounds at once. Choosing Custom only
// switches mode; the bounds change when SetStart or SetEnd is called.
type Selection struct {
	preset Preset
	rng    Range
}

// NewSelection starts a selection on preset p relative to ref.
func NewSelection(p Preset, ref time.Time) (Selection, error) {
	var s Selection
	if err := s.Choose(p, ref); err != nil {
		return Selection{}, err
	}
	return s, nil
}

// Choose selects preset p. For Custom the current bounds are kept.
func (s *Selection) Choose(p Preset, ref time.Time) error {
	if p == Custom {
		s.preset = Custom
		return nil
	}
	r, err := FromPreset(p, ref)
	if err != nil {
		return err
	}
	s.preset = p
	s.rng = r
	return nil
}

// SetStart sets the lower bound. End < Start is not rejected; the picker
// only uses the bounds for display.
func (s *Selection) SetStart(t time.Time) { s.rng.Start = t }

// SetEnd sets the upper bound.
func (s *Selection) SetEnd(t time.Time) { s.rng.End = t }

// Preset returns the active preset.
func (s Selection) Preset() Preset { return s.preset }

// Range returns the current bounds.
func (s Selection) Range() Range { return s.rng }

// IsCustom reports whether explicit bounds are being picked.
func (s Selection) IsCustom() bool { return s.preset == Custom }
