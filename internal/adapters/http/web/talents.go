package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/domain/model"
	"github.com/talentiave/cms/internal/fetch"
	"github.com/talentiave/cms/internal/views"
)

const talentsPath = "/admin/talents"

type talentsPage struct {
	State views.TalentListState
	// Return is the list URL the row actions come back to.
	Return string
}

// PageHref links to page n of the current search.
func (p talentsPage) PageHref(n int) string { return listHref(p.State.Params.Search, n) }

func listHref(search string, page int) string {
	v := url.Values{}
	if search != "" {
		v.Set("search", search)
	}
	v.Set("page", strconv.Itoa(page))
	return talentsPath + "?" + v.Encode()
}

// statusCell is the data of one row's action cell.
type statusCell struct {
	ID         int64
	IsFeatured bool
	Return     string
	Error      string
}

// EditHref links to the talent editor.
func (c statusCell) EditHref() string { return talentsPath + "/" + strconv.FormatInt(c.ID, 10) }

// Action is the change the cell offers.
func (c statusCell) Action() views.StatusAction {
	if c.IsFeatured {
		return views.Deactivate
	}
	return views.Activate
}

// ActionHref links to the confirm step of Action.
func (c statusCell) ActionHref() string {
	return c.EditHref() + "/" + string(c.Action()) + "?" + url.Values{"return": {c.Return}}.Encode()
}

// Cell returns the action cell data for t.
func (p talentsPage) Cell(t model.Talent) statusCell {
	return statusCell{ID: t.ID, IsFeatured: t.IsFeatured, Return: p.Return}
}

// handleTalents renders the talent list. htmx requests get the table only.
func (s *Server) handleTalents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	params := views.ListParams{Search: q.Get("search"), Page: page}
	if _, typed := q["search"]; typed && q.Get("page") == "" {
		params = params.WithSearch(params.Search)
	}

	nav := &redirector{}
	state := s.views.TalentList(r.Context(), sessionOf(r), nav, params)
	if nav.follow(w, r) {
		return
	}
	if state.Superseded {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data := s.layout(r, "Talents", "talents", talentsPage{
		State:  state,
		Return: listHref(state.Params.Search, state.Params.Page),
	})
	if isHTMX(r) {
		w.Header().Set("HX-Push-Url", listHref(state.Params.Search, state.Params.Page))
		s.render(w, r, http.StatusOK, pageTalents, "talents-table", data)
		return
	}
	s.render(w, r, http.StatusOK, pageTalents, "", data)
}

func talentID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// safeReturn keeps row actions inside the talent list.
func safeReturn(v string) string {
	if strings.HasPrefix(v, talentsPath) && !strings.HasPrefix(v, "//") {
		return v
	}
	return talentsPath
}

type confirmPage struct {
	Confirm views.Confirmation
	Prompt  string
	Cell    statusCell
}

// PostHref is where the confirmed change is submitted.
func (p confirmPage) PostHref() string {
	return p.Cell.EditHref() + "/" + string(p.Confirm.Action)
}

// handleStatusConfirm is the confirm step of activate and deactivate. It
// issues the single-use nonce the change must present.
func (s *Server) handleStatusConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := talentID(r)
	action, err := views.ParseStatusAction(r.PathValue("action"))
	if !ok || err != nil {
		s.renderError(w, r, http.StatusNotFound, "Page not found.")
		return
	}
	ret := safeReturn(r.URL.Query().Get("return"))
	c := s.views.ConfirmStatus(r.Context(), sessionOf(r), action, id, ret)
	page := confirmPage{
		Confirm: c,
		Prompt:  action.Prompt(),
		Cell:    statusCell{ID: id, IsFeatured: !action.Featured(), Return: ret},
	}
	data := s.layout(r, "Confirm", "talents", page)
	if isHTMX(r) {
		s.render(w, r, http.StatusOK, pageConfirm, "confirm-cell", data)
		return
	}
	s.render(w, r, http.StatusOK, pageConfirm, "", data)
}

// handleStatusChange performs a confirmed activate or deactivate. htmx
// requests get the row's new action cell. Others get the list they came from
// with that row changed, or a redirect to the list with a flash message when
// no such list is held.
func (s *Server) handleStatusChange(w http.ResponseWriter, r *http.Request) {
	id, ok := talentID(r)
	action, err := views.ParseStatusAction(r.PathValue("action"))
	if !ok || err != nil {
		s.renderError(w, r, http.StatusNotFound, "Page not found.")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, ErrBadRequest.Error())
		return
	}
	ret := safeReturn(r.PostFormValue("return"))
	sess := sessionOf(r)

	nav := &redirector{}
	res, err := s.views.ChangeStatus(r.Context(), sess, nav, action, id, r.PostFormValue("nonce"))
	if nav.follow(w, r) {
		return
	}

	cell := statusCell{ID: id, IsFeatured: !action.Featured(), Return: ret}
	status := http.StatusOK
	var flash string
	switch {
	case err == nil:
		cell.IsFeatured = res.Featured
		flash = "Talent " + string(action) + "d."
	case errors.Is(err, views.ErrConfirmationRejected):
		status = http.StatusConflict
		cell.Error = err.Error()
		flash = "Confirmation expired or already used."
	default:
		status = http.StatusBadGateway
		cell.Error = err.Error()
		flash = err.Error()
	}

	if isHTMX(r) {
		s.render(w, r, status, pageTalents, "status-cell", cell)
		return
	}
	if res.List != nil {
		// The changed row is already applied to the page the admin came from.
		list := *res.List
		list.Flash = flash
		s.render(w, r, http.StatusOK, pageTalents, "", s.layout(r, "Talents", "talents", talentsPage{
			State:  list,
			Return: listHref(list.Params.Search, list.Params.Page),
		}))
		return
	}
	_ = sess.SetFlash(r.Context(), flash)
	http.Redirect(w, r, ret, http.StatusSeeOther)
}

type talentPage struct {
	State views.TalentDetailState
}

// handleTalent renders the talent editor.
func (s *Server) handleTalent(w http.ResponseWriter, r *http.Request) {
	id, ok := talentID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Talent not found.")
		return
	}
	nav := &redirector{}
	state := s.views.TalentDetail(r.Context(), sessionOf(r), nav, id)
	if nav.follow(w, r) {
		return
	}
	if state.Superseded {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	status := http.StatusOK
	if state.State == fetch.Errored && backend.StatusOf(state.Err) == http.StatusNotFound {
		status = http.StatusNotFound
	}
	s.render(w, r, status, pageTalent, "", s.layout(r, "Edit Talent", "talents", talentPage{State: state}))
}

// handleTalentSave validates and saves the editor form.
func (s *Server) handleTalentSave(w http.ResponseWriter, r *http.Request) {
	id, ok := talentID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Talent not found.")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, ErrBadRequest.Error())
		return
	}
	form := views.TalentForm{
		FullName: r.PostFormValue("full_name"),
		Email:    r.PostFormValue("email"),
		Bio:      r.PostFormValue("bio"),
	}
	if v, err := strconv.ParseInt(r.PostFormValue("job_title_id"), 10, 64); err == nil {
		form.JobTitleID = &v
	}
	for _, raw := range r.PostForm["skills"] {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			form.SkillIDs = append(form.SkillIDs, v)
		}
	}

	nav := &redirector{}
	state, err := s.views.SaveTalent(r.Context(), sessionOf(r), nav, id, form, postedOptions(r.PostForm))
	if nav.follow(w, r) {
		return
	}
	if errors.Is(err, backend.ErrAborted) {
		redirect(w, r, backend.LoginPath)
		return
	}
	state.Talent = model.Talent{
		ID:             id,
		FullName:       form.FullName,
		Email:          form.Email,
		Bio:            form.Bio,
		JobTitleID:     form.JobTitleID,
		ProfilePicture: optional(r.PostFormValue("profile_picture")),
		ResumeFile:     optional(r.PostFormValue("resume_file")),
	}

	status := http.StatusOK
	if state.Problem() != "" {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, r, status, pageTalent, "", s.layout(r, "Edit Talent", "talents", talentPage{State: state}))
}

// postedOptions reads back the option lists the editor was rendered with.
// Each value is "<id>:<label>"; malformed entries are skipped.
func postedOptions(form url.Values) views.TalentOptions {
	var opts views.TalentOptions
	for _, raw := range form["job_title_option"] {
		if id, label, ok := splitOption(raw); ok {
			opts.JobTitles = append(opts.JobTitles, model.JobTitle{ID: id, Title: label})
		}
	}
	for _, raw := range form["skill_option"] {
		if id, label, ok := splitOption(raw); ok {
			opts.Skills = append(opts.Skills, model.Skill{ID: id, Name: label})
		}
	}
	return opts
}

func splitOption(raw string) (int64, string, bool) {
	idPart, label, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, label, true
}

func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
