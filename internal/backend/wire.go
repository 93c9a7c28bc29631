package backend

import (
	"encoding/json"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/talentiave/cms/internal/domain/model"
)

var errNotArray = errors.New("expected a JSON array")

// statsWire: approvedTalents is optional, the four card counters are not.
type statsWire struct {
	Talents         *int64 `json:"talents"`
	ApprovedTalents *int64 `json:"approvedTalents"`
	Proposals       *int64 `json:"proposals"`
	Companies       *int64 `json:"companies"`
	Jobs            *int64 `json:"jobs"`
}

func (w *statsWire) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Talents, validation.NotNil),
		validation.Field(&w.Proposals, validation.NotNil),
		validation.Field(&w.Companies, validation.NotNil),
		validation.Field(&w.Jobs, validation.NotNil),
	)
}

func (w *statsWire) model() *model.DashboardStats {
	deref := func(p *int64) int64 {
		if p == nil {
			return 0
		}
		return *p
	}
	return &model.DashboardStats{
		Talents:         deref(w.Talents),
		ApprovedTalents: deref(w.ApprovedTalents),
		Proposals:       deref(w.Proposals),
		Companies:       deref(w.Companies),
		Jobs:            deref(w.Jobs),
	}
}

type talentPageWire struct {
	Talents    []model.Talent `json:"talents"`
	TotalPages *int           `json:"totalPages"`
}

func (w *talentPageWire) Validate() error {
	if err := validation.ValidateStruct(w,
		validation.Field(&w.Talents, validation.NotNil),
		validation.Field(&w.TotalPages, validation.NotNil, validation.Min(0)),
	); err != nil {
		return err
	}
	for i := range w.Talents {
		if err := validateTalent(&w.Talents[i]); err != nil {
			return err
		}
	}
	return nil
}

type talentDetailWire struct {
	Talent *model.Talent `json:"talent"`
	Skills []model.Skill `json:"skills"`
}

func (w *talentDetailWire) Validate() error {
	if err := validation.ValidateStruct(w,
		validation.Field(&w.Talent, validation.NotNil),
	); err != nil {
		return err
	}
	return validateTalent(w.Talent)
}

func validateTalent(t *model.Talent) error {
	return validation.ValidateStruct(t,
		validation.Field(&t.ID, validation.Required),
	)
}

// echoedTalent extracts a talent from a mutation response, accepting either
// {"talent": {...}} or the bare record. Anything else yields nil.
func echoedTalent(raw json.RawMessage) *model.Talent {
	var env struct {
		Talent *model.Talent `json:"talent"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Talent != nil && env.Talent.ID != 0 {
		return env.Talent
	}
	var bare model.Talent
	if err := json.Unmarshal(raw, &bare); err == nil && bare.ID != 0 {
		return &bare
	}
	return nil
}
