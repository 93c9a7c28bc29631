package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/talentiave/cms/internal/daterange"
	"github.com/talentiave/cms/internal/domain/model"
)

// timeLayout is RFC 3339 in UTC with millisecond precision.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t the way the backend expects date filters.
func FormatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// TalentQuery selects one page of the talent list.
type TalentQuery struct {
	Search string
	Page   int
	Limit  int
}

// TalentPage is one page of GET /talents.
type TalentPage struct {
	Talents    []model.Talent
	TotalPages int
}

// TalentDetail is GET /talents/:id.
type TalentDetail struct {
	Talent model.Talent
	Skills []model.Skill
}

// TalentUpdate is the PUT /talents/:id body. JobTitleID is sent as null when
// unset.
type TalentUpdate struct {
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Bio        string  `json:"bio"`
	JobTitleID *int64  `json:"job_title_id"`
	Skills     []int64 `json:"skills"`
}

// Stats calls GET /dashboard/stats for r.
func (c *Client) Stats(ctx context.Context, creds Credentials, nav Navigator, r daterange.Range) (*model.DashboardStats, error) {
	q := url.Values{}
	q.Set("startDate", FormatTime(r.Start))
	q.Set("endDate", FormatTime(r.End))

	var wire statsWire
	if err := c.fetchInto(ctx, creds, nav, http.MethodGet, "/dashboard/stats", &wire, WithQuery(q)); err != nil {
		return nil, err
	}
	return wire.model(), nil
}

// Talents calls GET /talents.
func (c *Client) Talents(ctx context.Context, creds Credentials, nav Navigator, tq TalentQuery) (*TalentPage, error) {
	q := url.Values{}
	q.Set("search", tq.Search)
	q.Set("page", strconv.Itoa(tq.Page))
	q.Set("limit", strconv.Itoa(tq.Limit))

	var wire talentPageWire
	if err := c.fetchInto(ctx, creds, nav, http.MethodGet, "/talents", &wire, WithQuery(q)); err != nil {
		return nil, err
	}
	return &TalentPage{Talents: wire.Talents, TotalPages: *wire.TotalPages}, nil
}

// Talent calls GET /talents/:id.
func (c *Client) Talent(ctx context.Context, creds Credentials, nav Navigator, id int64) (*TalentDetail, error) {
	var wire talentDetailWire
	if err := c.fetchInto(ctx, creds, nav, http.MethodGet, talentPath(id), &wire); err != nil {
		return nil, err
	}
	skills := wire.Skills
	if skills == nil {
		skills = []model.Skill{}
	}
	return &TalentDetail{Talent: *wire.Talent, Skills: skills}, nil
}

// UpdateTalent calls PUT /talents/:id. The returned talent is nil when the
// backend acknowledges without echoing the record.
func (c *Client) UpdateTalent(ctx context.Context, creds Credentials, nav Navigator, id int64, u TalentUpdate) (*model.Talent, error) {
	if u.Skills == nil {
		u.Skills = []int64{}
	}
	return c.mutateTalent(ctx, creds, nav, http.MethodPut, talentPath(id), WithJSON(u))
}

// ActivateTalent calls POST /talents/activate/:id.
func (c *Client) ActivateTalent(ctx context.Context, creds Credentials, nav Navigator, id int64) (*model.Talent, error) {
	return c.mutateTalent(ctx, creds, nav, http.MethodPost, "/talents/activate/"+strconv.FormatInt(id, 10))
}

// DeactivateTalent calls POST /talents/deactivate/:id.
func (c *Client) DeactivateTalent(ctx context.Context, creds Credentials, nav Navigator, id int64) (*model.Talent, error) {
	return c.mutateTalent(ctx, creds, nav, http.MethodPost, "/talents/deactivate/"+strconv.FormatInt(id, 10))
}

// JobTitles calls GET /job-titles.
func (c *Client) JobTitles(ctx context.Context, creds Credentials, nav Navigator) ([]model.JobTitle, error) {
	var out []model.JobTitle
	if err := c.fetchInto(ctx, creds, nav, http.MethodGet, "/job-titles", &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &DecodeError{Endpoint: "job-titles", Err: errNotArray}
	}
	return out, nil
}

// Skills calls GET /skills.
func (c *Client) Skills(ctx context.Context, creds Credentials, nav Navigator) ([]model.Skill, error) {
	var out []model.Skill
	if err := c.fetchInto(ctx, creds, nav, http.MethodGet, "/skills", &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &DecodeError{Endpoint: "skills", Err: errNotArray}
	}
	return out, nil
}

// Links calls GET /links. The date filter is sent only when both bounds are set.
func (c *Client) Links(ctx context.Context, creds Credentials, nav Navigator, r daterange.Range) ([]model.Link, error) {
	var opts []RequestOption
	if r.Complete() {
		q := url.Values{}
		q.Set("startDate", FormatTime(r.Start))
		q.Set("endDate", FormatTime(r.End))
		opts = append(opts, WithQuery(q))
	}
	var out []model.Link
	if err := c.fetchInto(ctx, creds, nav, http.MethodGet, "/links", &out, opts...); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &DecodeError{Endpoint: "links", Err: errNotArray}
	}
	return out, nil
}

func (c *Client) mutateTalent(ctx context.Context, creds Credentials, nav Navigator, method, path string, opts ...RequestOption) (*model.Talent, error) {
	raw, err := c.AuthFetch(ctx, creds, nav, method, path, opts...)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrAborted
	}
	return echoedTalent(raw), nil
}

// fetchInto runs AuthFetch, decodes into dst and validates it when dst
// implements validation.Validatable.
func (c *Client) fetchInto(ctx context.Context, creds Credentials, nav Navigator, method, path string, dst any, opts ...RequestOption) error {
	raw, err := c.AuthFetch(ctx, creds, nav, method, path, opts...)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrAborted
	}
	endpoint := endpointLabel(path)
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	if v, ok := dst.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return &DecodeError{Endpoint: endpoint, Err: err}
		}
	}
	return nil
}

func talentPath(id int64) string { return "/talents/" + strconv.FormatInt(id, 10) }
