package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/domain/model"
	"github.com/talentiave/cms/internal/fetch"
	"github.com/talentiave/cms/pkg/logger"
	"github.com/talentiave/cms/pkg/metrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrConfirmationRejected is returned when a status change arrives without a
// valid confirmation nonce, including a second submit of the same form.
var ErrConfirmationRejected = errors.New("confirmation expired or already used")

// NormalizeSearch lower-cases the search term as it is sent to the backend.
// A Caser is stateful, so one is built per call.
func NormalizeSearch(s string) string {
	return cases.Lower(language.Und).String(s)
}

// ListParams are the talent list's request state.
type ListParams struct {
	Search string
	Page   int
}

// WithSearch returns params for a new search term. The page resets to 1.
func (p ListParams) WithSearch(search string) ListParams {
	return ListParams{Search: NormalizeSearch(search), Page: 1}
}

// WithPage returns params for another page of the same search.
func (p ListParams) WithPage(page int) ListParams {
	if page < 1 {
		page = 1
	}
	return ListParams{Search: p.Search, Page: page}
}

// TalentListState is what the talent list template renders.
type TalentListState struct {
	Params     ListParams
	TotalPages int
	Talents    []model.Talent
	State      fetch.State
	Err        error
	Superseded bool
	Flash      string
	FlashTTL   time.Duration
}

// PrevDisabled reports whether there is no previous page.
func (s TalentListState) PrevDisabled() bool { return s.Params.Page <= 1 }

// NextDisabled reports whether the current page is the last one.
func (s TalentListState) NextDisabled() bool { return s.Params.Page >= s.TotalPages }

// PrevPage returns the previous page number.
func (s TalentListState) PrevPage() int { return s.Params.Page - 1 }

// NextPage returns the next page number.
func (s TalentListState) NextPage() int { return s.Params.Page + 1 }

// SetFeatured flips one row's flag in place. Other rows are untouched. It
// reports whether the row was found.
func (s *TalentListState) SetFeatured(id int64, featured bool) bool {
	for i := range s.Talents {
		if s.Talents[i].ID == id {
			s.Talents[i].IsFeatured = featured
			return true
		}
	}
	return false
}

// TalentList loads one page of talents.
func (v *Views) TalentList(ctx context.Context, sess Session, nav backend.Navigator, p ListParams) TalentListState {
	p = ListParams{Search: NormalizeSearch(p.Search)}.WithPage(p.Page)
	out := fetch.Run(ctx, v.fetches, key(sess, ViewTalents), func(fctx context.Context) (*backend.TalentPage, error) {
		return v.api.Talents(fctx, sess, nav, backend.TalentQuery{Search: p.Search, Page: p.Page, Limit: v.pageSize})
	})

	state := TalentListState{Params: p, State: out.State, Err: out.Err, Superseded: out.Superseded, TotalPages: 1, FlashTTL: v.flashTTL}
	if out.Value != nil {
		state.Talents = out.Value.Talents
		state.TotalPages = out.Value.TotalPages
	}
	if out.State == fetch.Loaded {
		v.lists.put(sess.ID(), state)
	}
	// Superseded and aborted requests render nothing, so the flash waits for
	// the next page that does.
	if out.State == fetch.Loaded || out.State == fetch.Errored {
		if flash, err := sess.TakeFlash(ctx); err == nil {
			state.Flash = flash
		}
	}
	return state
}

// StatusAction is activate or deactivate.
type StatusAction string

// Status actions.
const (
	Activate   StatusAction = "activate"
	Deactivate StatusAction = "deactivate"
)

// ParseStatusAction validates an action name.
func ParseStatusAction(s string) (StatusAction, error) {
	switch StatusAction(s) {
	case Activate, Deactivate:
		return StatusAction(s), nil
	default:
		return "", fmt.Errorf("unknown status action %q", s)
	}
}

// Featured is the flag value the action produces.
func (a StatusAction) Featured() bool { return a == Activate }

// Prompt is the confirmation question.
func (a StatusAction) Prompt() string {
	return fmt.Sprintf("Are you sure you want to %s this talent?", string(a))
}

// Confirmation is the state of the confirm step.
type Confirmation struct {
	Action   StatusAction
	TalentID int64
	Nonce    string
	Return   string
}

func confirmSubject(sess Session, a StatusAction, id int64) string {
	return sess.ID() + ":" + string(a) + ":" + strconv.FormatInt(id, 10)
}

// ConfirmStatus issues a single-use nonce for changing id's status.
func (v *Views) ConfirmStatus(ctx context.Context, sess Session, a StatusAction, id int64, returnTo string) Confirmation {
	return Confirmation{
		Action:   a,
		TalentID: id,
		Nonce:    v.ledger.Issue(ctx, confirmSubject(sess, a, id)),
		Return:   returnTo,
	}
}

// StatusResult is the outcome of a confirmed status change.
type StatusResult struct {
	TalentID int64
	Featured bool
	// Talent is the record echoed by the backend, when it sent one.
	Talent *model.Talent
	// List is the session's last talent page with only this row changed, when
	// that page holds the talent.
	List *TalentListState
}

// ChangeStatus performs a confirmed activate or deactivate. The nonce is
// consumed before the call, so a repeated submit never reaches the backend.
func (v *Views) ChangeStatus(ctx context.Context, sess Session, nav backend.Navigator, a StatusAction, id int64, nonce string) (StatusResult, error) {
	if !v.ledger.Consume(ctx, nonce, confirmSubject(sess, a, id)) {
		return StatusResult{}, ErrConfirmationRejected
	}

	call := v.api.ActivateTalent
	if a == Deactivate {
		call = v.api.DeactivateTalent
	}
	talent, err := call(ctx, sess, nav, id)
	if err != nil {
		if !errors.Is(err, backend.ErrAborted) {
			v.log.Warn(ctx, "talent status change failed",
				logger.String("action", string(a)), logger.Any("talent_id", id), logger.Error(err))
		}
		return StatusResult{}, err
	}
	metrics.RecordTalentStatusChange(string(a))

	res := StatusResult{TalentID: id, Featured: a.Featured(), Talent: talent}
	if list, ok := v.lists.setFeatured(sess.ID(), id, a.Featured()); ok {
		list.FlashTTL = v.flashTTL
		res.List = &list
	}
	return res, nil
}
