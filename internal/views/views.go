// Package views holds the page controllers of the console. Each controller
// turns request parameters into backend calls through a fetch cycle and
// returns the state a template renders.
package views

import (
	"context"
	"strconv"
	"time"

	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/daterange"
	"github.com/talentiave/cms/internal/domain/dedupe"
	"github.com/talentiave/cms/internal/domain/model"
	"github.com/talentiave/cms/internal/fetch"
	"github.com/talentiave/cms/pkg/logger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// API is the subset of *backend.Client the controllers use.
type API interface {
	Stats(ctx context.Context, creds backend.Credentials, nav backend.Navigator, r daterange.Range) (*model.DashboardStats, error)
	Talents(ctx context.Context, creds backend.Credentials, nav backend.Navigator, q backend.TalentQuery) (*backend.TalentPage, error)
	Talent(ctx context.Context, creds backend.Credentials, nav backend.Navigator, id int64) (*backend.TalentDetail, error)
	UpdateTalent(ctx context.Context, creds backend.Credentials, nav backend.Navigator, id int64, u backend.TalentUpdate) (*model.Talent, error)
	ActivateTalent(ctx context.Context, creds backend.Credentials, nav backend.Navigator, id int64) (*model.Talent, error)
	DeactivateTalent(ctx context.Context, creds backend.Credentials, nav backend.Navigator, id int64) (*model.Talent, error)
	JobTitles(ctx context.Context, creds backend.Credentials, nav backend.Navigator) ([]model.JobTitle, error)
	Skills(ctx context.Context, creds backend.Credentials, nav backend.Navigator) ([]model.Skill, error)
	Links(ctx context.Context, creds backend.Credentials, nav backend.Navigator, r daterange.Range) ([]model.Link, error)
	Login(ctx context.Context, req backend.AuthRequest) (string, error)
	Register(ctx context.Context, req backend.AuthRequest) (string, error)
}

// Session is the part of a browser session the controllers use.
// *session.Handle implements it.
type Session interface {
	backend.Credentials
	ID() string
	SetCredential(ctx context.Context, token string) error
	SetFlash(ctx context.Context, msg string) error
	TakeFlash(ctx context.Context) (string, error)
}

// View names, used as fetch cycle keys and metric labels.
const (
	ViewStats   = "stats"
	ViewLinks   = "links"
	ViewTalents = "talents"
	ViewTalent  = "talent"
)

// Views bundles the controllers and their shared dependencies.
type Views struct {
	api      API
	fetches  *fetch.Registry
	lists    *listSnapshots
	ledger   dedupe.Ledger
	pageSize int
	flashTTL time.Duration
	now      func() time.Time
	log      logger.Logger
}

// Option configures Views.
type Option func(*Views)

// WithPageSize sets the talent list page size.
func WithPageSize(n int) Option {
	return func(v *Views) {
		if n > 0 {
			v.pageSize = n
		}
	}
}

// WithFlashTTL sets how long transient confirmations stay visible.
func WithFlashTTL(d time.Duration) Option {
	return func(v *Views) {
		if d > 0 {
			v.flashTTL = d
		}
	}
}

// WithLedger sets the confirmation nonce ledger.
func WithLedger(l dedupe.Ledger) Option {
	return func(v *Views) {
		if l != nil {
			v.ledger = l
		}
	}
}

// WithRegistry shares a fetch registry.
func WithRegistry(r *fetch.Registry) Option {
	return func(v *Views) {
		if r != nil {
			v.fetches = r
		}
	}
}

// WithClock overrides the time source used for date presets.
func WithClock(now func() time.Time) Option {
	return func(v *Views) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(v *Views) {
		if l != nil {
			v.log = l
		}
	}
}

// New creates the controllers.
func New(api API, opts ...Option) *Views {
	v := &Views{
		api:      api,
		lists:    newListSnapshots(defaultSnapshotCapacity),
		pageSize: 10,
		flashTTL: 3 * time.Second,
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.fetches == nil {
		v.fetches = fetch.NewRegistry()
	}
	if v.ledger == nil {
		v.ledger = dedupe.NewInMemoryLedger()
	}
	return v
}

// FlashTTL returns how long transient confirmations stay visible.
func (v *Views) FlashTTL() time.Duration { return v.flashTTL }

var counts = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string { return counts.Sprintf("%d", n) }

func key(sess Session, view string) fetch.Key {
	return fetch.Key{Session: sess.ID(), View: view}
}

func recordKey(sess Session, view string, id int64) fetch.Key {
	return fetch.Key{Session: sess.ID(), View: view, Subject: strconv.FormatInt(id, 10)}
}
