package views

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/domain/model"
	"github.com/talentiave/cms/internal/fetch"
	"github.com/talentiave/cms/pkg/logger"
	"github.com/talentiave/cms/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Messages shown by the talent editor.
const (
	MsgFullNameRequired = "Full Name is required."
	MsgEmailInvalid     = "Valid email is required."
	MsgSaved            = "Successfully updated!"
)

// TalentForm is the edit buffer of the talent editor.
type TalentForm struct {
	FullName   string
	Email      string
	Bio        string
	JobTitleID *int64
	SkillIDs   []int64
}

// FormFromTalent seeds the buffer from a loaded record.
func FormFromTalent(t model.Talent, skills []model.Skill) TalentForm {
	return TalentForm{
		FullName:   t.FullName,
		Email:      t.Email,
		Bio:        t.Bio,
		JobTitleID: t.JobTitleID,
		SkillIDs:   model.SkillIDs(skills),
	}
}

// Validate checks the buffer in display order and reports the first problem.
func (f TalentForm) Validate() error {
	if err := validation.Validate(f.FullName, validation.By(notBlank(MsgFullNameRequired))); err != nil {
		return err
	}
	return validation.Validate(f.Email,
		validation.By(notBlank(MsgEmailInvalid)),
		validation.By(contains("@", MsgEmailInvalid)),
	)
}

// HasSkill reports whether id is selected.
func (f TalentForm) HasSkill(id int64) bool {
	for _, s := range f.SkillIDs {
		if s == id {
			return true
		}
	}
	return false
}

// HasJobTitle reports whether id is the selected job title.
func (f TalentForm) HasJobTitle(id int64) bool {
	return f.JobTitleID != nil && *f.JobTitleID == id
}

func (f TalentForm) update() backend.TalentUpdate {
	skills := f.SkillIDs
	if skills == nil {
		skills = []int64{}
	}
	return backend.TalentUpdate{
		FullName:   f.FullName,
		Email:      f.Email,
		Bio:        f.Bio,
		JobTitleID: f.JobTitleID,
		Skills:     skills,
	}
}

func notBlank(msg string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New(msg)
		}
		return nil
	}
}

func contains(sub, msg string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if !strings.Contains(s, sub) {
			return errors.New(msg)
		}
		return nil
	}
}

// TalentDetailState is what the talent editor renders.
type TalentDetailState struct {
	ID         int64
	State      fetch.State
	Err        error
	Superseded bool

	Talent    model.Talent
	Form      TalentForm
	JobTitles []model.JobTitle
	Skills    []model.Skill

	// ValidationError blocks a save before it reaches the network.
	ValidationError string
	// SaveError is the backend's reason for a failed save.
	SaveError string
	// Flash is the transient save confirmation, shown for FlashTTL.
	Flash    string
	FlashTTL time.Duration
}

// Problem returns the message to show above the form, if any.
func (s TalentDetailState) Problem() string {
	if s.ValidationError != "" {
		return s.ValidationError
	}
	return s.SaveError
}

// OrphanSkillIDs returns selected skills missing from the option list, so a
// degraded list does not drop them on save.
func (s TalentDetailState) OrphanSkillIDs() []int64 {
	known := make(map[int64]struct{}, len(s.Skills))
	for _, sk := range s.Skills {
		known[sk.ID] = struct{}{}
	}
	var out []int64
	for _, id := range s.Form.SkillIDs {
		if _, ok := known[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// OrphanJobTitle returns the selected job title when the option list lacks it.
func (s TalentDetailState) OrphanJobTitle() *int64 {
	if s.Form.JobTitleID == nil {
		return nil
	}
	for _, jt := range s.JobTitles {
		if jt.ID == *s.Form.JobTitleID {
			return nil
		}
	}
	return s.Form.JobTitleID
}

type detailBundle struct {
	detail    *backend.TalentDetail
	jobTitles []model.JobTitle
	skills    []model.Skill
}

// TalentDetail loads a talent with the job title and skill option lists.
// The three calls run concurrently. Option list failures degrade to empty
// lists; a failure loading the talent fails the page.
func (v *Views) TalentDetail(ctx context.Context, sess Session, nav backend.Navigator, id int64) TalentDetailState {
	out := fetch.Run(ctx, v.fetches, recordKey(sess, ViewTalent, id), func(fctx context.Context) (detailBundle, error) {
		var b detailBundle
		var g errgroup.Group
		g.Go(func() error {
			d, err := v.api.Talent(fctx, sess, nav, id)
			if err != nil {
				return err
			}
			b.detail = d
			return nil
		})
		g.Go(func() error {
			var err error
			b.jobTitles, err = optionList(v, fctx, "job titles", func() ([]model.JobTitle, error) {
				return v.api.JobTitles(fctx, sess, nav)
			})
			return err
		})
		g.Go(func() error {
			var err error
			b.skills, err = optionList(v, fctx, "skills", func() ([]model.Skill, error) {
				return v.api.Skills(fctx, sess, nav)
			})
			return err
		})
		err := g.Wait()
		return b, err
	})

	state := TalentDetailState{ID: id, State: out.State, Err: out.Err, Superseded: out.Superseded, FlashTTL: v.flashTTL}
	if out.State == fetch.Loaded {
		state.Talent = out.Value.detail.Talent
		state.Form = FormFromTalent(out.Value.detail.Talent, out.Value.detail.Skills)
		state.JobTitles = out.Value.jobTitles
		state.Skills = out.Value.skills
	}
	return state
}

// TalentOptions are the job title and skill choices the editor was rendered
// with. A save re-renders with them instead of loading them again.
type TalentOptions struct {
	JobTitles []model.JobTitle
	Skills    []model.Skill
}

// SaveTalent validates and submits the edit buffer. A validation failure
// never reaches the backend. On success the buffer is kept as submitted and a
// transient confirmation is set; the talent is not fetched again.
func (v *Views) SaveTalent(ctx context.Context, sess Session, nav backend.Navigator, id int64, form TalentForm, opts TalentOptions) (TalentDetailState, error) {
	state := TalentDetailState{
		ID:        id,
		Form:      form,
		FlashTTL:  v.flashTTL,
		State:     fetch.Loaded,
		JobTitles: opts.JobTitles,
		Skills:    opts.Skills,
	}

	if err := form.Validate(); err != nil {
		metrics.RecordValidationFailure("talent")
		state.ValidationError = err.Error()
		return state, nil
	}

	_, err := v.api.UpdateTalent(ctx, sess, nav, id, form.update())
	if errors.Is(err, backend.ErrAborted) {
		return state, err
	}
	if err != nil {
		v.log.Warn(ctx, "talent save failed", logger.Any("talent_id", id), logger.Error(err))
		state.SaveError = err.Error()
		return state, nil
	}
	state.Flash = MsgSaved
	return state, nil
}

// optionList loads a select's options. Failures other than an invalidated
// session are logged and replaced by an empty list.
func optionList[T any](v *Views, ctx context.Context, what string, load func() ([]T, error)) ([]T, error) {
	items, err := load()
	if err == nil {
		return items, nil
	}
	if errors.Is(err, backend.ErrAborted) {
		return nil, err
	}
	v.log.Warn(ctx, "failed to load "+what+"; showing none", logger.Error(err))
	return []T{}, nil
}
