package web_test

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/talentiave/cms/internal/adapters/http/web"
	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/session"
	"github.com/talentiave/cms/internal/views"
)

// marketplace is a fake of the upstream REST API.
type marketplace struct {
	mu        sync.Mutex
	forbidden bool
	requests  []*http.Request
	bodies    map[string]string
}

func (m *marketplace) record(r *http.Request) string {
	body, _ := io.ReadAll(r.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r)
	if m.bodies == nil {
		m.bodies = make(map[string]string)
	}
	m.bodies[r.Method+" "+r.URL.Path] = string(body)
	return string(body)
}

func (m *marketplace) count(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Method == method && r.URL.Path == path {
			n++
		}
	}
	return n
}

func (m *marketplace) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *marketplace) last(path string) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.requests) - 1; i >= 0; i-- {
		if m.requests[i].URL.Path == path {
			return m.requests[i]
		}
	}
	return nil
}

func (m *marketplace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := m.record(r)
	w.Header().Set("Content-Type", "application/json")

	m.mu.Lock()
	forbidden := m.forbidden
	m.mu.Unlock()
	if forbidden && !strings.HasPrefix(r.URL.Path, "/auth/") {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"expired"}`)
		return
	}

	switch {
	case r.URL.Path == "/auth/login":
		var req backend.AuthRequest
		_ = json.Unmarshal([]byte(body), &req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"user":{"token":"tok-1"}}`)
	case r.URL.Path == "/dashboard/stats":
		_, _ = io.WriteString(w, `{"talents":1200,"proposals":3,"companies":4,"jobs":5}`)
	case r.URL.Path == "/links":
		_, _ = io.WriteString(w, `[{"id":1,"label":"Careers","url":"https://talentiave.com/c","click_count":42}]`)
	case r.URL.Path == "/talents":
		_, _ = io.WriteString(w, `{"talents":[{"id":5,"full_name":"Ada Lovelace","email":"ada@example.com","is_featured":false}],"totalPages":2}`)
	case r.URL.Path == "/talents/5" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"talent":{"id":5,"full_name":"Ada Lovelace","email":"ada@example.com","bio":"Analyst","job_title_id":2},"skills":[{"id":1,"name":"Go"}]}`)
	case r.URL.Path == "/talents/5" && r.Method == http.MethodPut:
		_, _ = io.WriteString(w, `{"message":"updated"}`)
	case strings.HasPrefix(r.URL.Path, "/talents/activate/"), strings.HasPrefix(r.URL.Path, "/talents/deactivate/"):
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	case r.URL.Path == "/job-titles":
		_, _ = io.WriteString(w, `[{"id":2,"title":"Mathematician"}]`)
	case r.URL.Path == "/skills":
		_, _ = io.WriteString(w, `[{"id":1,"name":"Go"},{"id":3,"name":"SQL"}]`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	}
}

type harness struct {
	mux      *http.ServeMux
	upstream *marketplace
	store    *session.MemoryStore
}

func newHarness(t *testing.T, opts ...views.Option) *harness {
	upstream := &marketplace{}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	v := views.New(backend.New(srv.URL), opts...)
	s, err := web.NewServer(v, session.NewManager(store), web.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	mux := http.NewServeMux()
	s.Register(context.Background(), mux)
	return &harness{mux: mux, upstream: upstream, store: store}
}

// signedIn stores a session holding a credential and returns its cookie.
func (h *harness) signedIn() *http.Cookie {
	id := uuid.NewString()
	_ = h.store.Save(context.Background(), id, session.Data{Credential: "tok-1"}, time.Hour)
	return &http.Cookie{Name: session.DefaultCookieName, Value: id}
}

func (h *harness) do(method, target string, form url.Values, cookie *http.Cookie, htmx bool) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if htmx {
		req.Header.Set(web.HXRequest, "true")
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

func TestRouteGuard(t *testing.T) {
	Convey("Given a console without a signed-in session", t, func() {
		h := newHarness(t)

		Convey("When an admin page is requested", func() {
			w := h.do(http.MethodGet, "/admin/talents", nil, nil, false)

			Convey("Then it redirects to login without calling the backend", func() {
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/auth/login")
				So(h.upstream.count(http.MethodGet, "/talents"), ShouldEqual, 0)
			})
		})

		Convey("When htmx requests an admin fragment", func() {
			w := h.do(http.MethodGet, "/admin/talents", nil, nil, true)
			So(w.Header().Get("HX-Redirect"), ShouldEqual, "/auth/login")
		})

		Convey("When the root is requested", func() {
			w := h.do(http.MethodGet, "/", nil, nil, false)
			So(w.Header().Get("Location"), ShouldEqual, "/auth/login")
		})

		Convey("When the root is requested with a credential", func() {
			w := h.do(http.MethodGet, "/", nil, h.signedIn(), false)
			So(w.Header().Get("Location"), ShouldEqual, "/admin")
		})
	})
}

func TestAuthPages(t *testing.T) {
	Convey("Given the auth forms", t, func() {
		h := newHarness(t)

		Convey("When the login form is shown", func() {
			w := h.do(http.MethodGet, "/auth/login", nil, nil, false)

			Convey("Then it offers sign in without a name field", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "Sign In")
				So(w.Body.String(), ShouldNotContainSubstring, `name="name"`)
				So(w.Body.String(), ShouldContainSubstring, "Forgot Password?")
			})
		})

		Convey("When the register form is shown", func() {
			w := h.do(http.MethodGet, "/auth/register", nil, nil, false)
			So(w.Body.String(), ShouldContainSubstring, "Sign Up")
			So(w.Body.String(), ShouldContainSubstring, `name="name"`)
		})

		Convey("When an unknown form is requested", func() {
			w := h.do(http.MethodGet, "/auth/other", nil, nil, false)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When valid credentials are posted", func() {
			w := h.do(http.MethodPost, "/auth/login", url.Values{"email": {"a@b.co"}, "password": {"secret"}}, nil, false)

			Convey("Then the session holds the token and the dashboard follows", func() {
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/admin")
				So(h.upstream.bodies["POST /auth/login"], ShouldContainSubstring, `"role":"admin"`)

				cookies := w.Result().Cookies()
				So(cookies, ShouldNotBeEmpty)
				data, err := h.store.Load(context.Background(), cookies[0].Value)
				So(err, ShouldBeNil)
				So(data.Credential, ShouldEqual, "tok-1")
			})
		})

		Convey("When a wrong password is posted", func() {
			w := h.do(http.MethodPost, "/auth/login", url.Values{"email": {"a@b.co"}, "password": {"nope"}}, nil, false)

			Convey("Then the mapped message is shown", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(w.Body.String(), ShouldContainSubstring, "Invalid email or password.")
				So(h.store.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestLogout(t *testing.T) {
	Convey("Given a signed-in session", t, func() {
		h := newHarness(t)
		cookie := h.signedIn()

		Convey("When logging out", func() {
			w := h.do(http.MethodPost, "/auth/logout", url.Values{}, cookie, false)

			Convey("Then the entry is gone and login follows", func() {
				So(w.Header().Get("Location"), ShouldEqual, "/auth/login")
				_, err := h.store.Load(context.Background(), cookie.Value)
				So(err, ShouldEqual, session.ErrNotFound)
			})
		})
	})
}

func TestDashboardPage(t *testing.T) {
	Convey("Given a signed-in session", t, func() {
		h := newHarness(t)
		cookie := h.signedIn()

		Convey("When the dashboard opens without a range", func() {
			w := h.do(http.MethodGet, "/admin", nil, cookie, false)

			Convey("Then stats, chart and links render", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, "New Talents")
				So(body, ShouldContainSubstring, "1,200")
				So(body, ShouldContainSubstring, "Trends")
				So(body, ShouldContainSubstring, "Careers")

				stats := h.upstream.last("/dashboard/stats")
				So(stats, ShouldNotBeNil)
				So(stats.URL.Query().Get("startDate"), ShouldNotBeEmpty)
				So(stats.Header.Get("Authorization"), ShouldEqual, "Bearer tok-1")
				So(h.upstream.last("/links").URL.Query().Get("startDate"), ShouldBeEmpty)
			})
		})

		Convey("When the links filter is applied through htmx", func() {
			w := h.do(http.MethodGet, "/admin/links?links_start=2024-03-01&links_end=2024-03-10", nil, cookie, true)

			Convey("Then only the table is returned, filtered", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldNotContainSubstring, "<html")
				So(w.Body.String(), ShouldContainSubstring, `id="links"`)
				q := h.upstream.last("/links").URL.Query()
				So(q.Get("startDate"), ShouldEqual, "2024-03-01T00:00:00.000Z")
				So(q.Get("endDate"), ShouldEqual, "2024-03-10T23:59:59.999Z")
			})
		})

		Convey("When custom is chosen after a preset", func() {
			preset := h.do(http.MethodGet, "/admin?range=7days", nil, cookie, false)
			before := h.upstream.last("/dashboard/stats").URL.Query()

			m := regexp.MustCompile(`href="(/admin\?[^"]*range=custom[^"]*)"`).FindStringSubmatch(preset.Body.String())
			So(m, ShouldHaveLength, 2)
			custom := h.do(http.MethodGet, html.UnescapeString(m[1]), nil, cookie, false)

			Convey("Then the stats are asked for the same instants", func() {
				So(custom.Code, ShouldEqual, http.StatusOK)
				So(h.upstream.count(http.MethodGet, "/dashboard/stats"), ShouldEqual, 2)
				after := h.upstream.last("/dashboard/stats").URL.Query()
				So(after.Get("startDate"), ShouldEqual, before.Get("startDate"))
				So(after.Get("endDate"), ShouldEqual, before.Get("endDate"))
			})
		})

		Convey("When custom dates are typed", func() {
			h.do(http.MethodGet, "/admin?range=custom&start=2024-03-01&end=2024-03-10&from=2020-01-01T10:00:00Z", nil, cookie, false)

			Convey("Then they are aligned to whole days", func() {
				q := h.upstream.last("/dashboard/stats").URL.Query()
				So(q.Get("startDate"), ShouldEqual, "2024-03-01T00:00:00.000Z")
				So(q.Get("endDate"), ShouldEqual, "2024-03-10T23:59:59.999Z")
			})
		})

		Convey("When custom is chosen without dates", func() {
			w := h.do(http.MethodGet, "/admin?range=custom", nil, cookie, false)
			So(w.Body.String(), ShouldContainSubstring, "Pick a start and an end date")
			So(h.upstream.count(http.MethodGet, "/dashboard/stats"), ShouldEqual, 0)
		})
	})
}

func TestTalentPages(t *testing.T) {
	Convey("Given a signed-in session", t, func() {
		h := newHarness(t)
		cookie := h.signedIn()

		Convey("When the talent list is searched", func() {
			w := h.do(http.MethodGet, "/admin/talents?search=ADA", nil, cookie, false)

			Convey("Then the lower-cased term is sent for page 1", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "Ada Lovelace")
				So(w.Body.String(), ShouldContainSubstring, "Page 1 of 2")
				q := h.upstream.last("/talents").URL.Query()
				So(q.Get("search"), ShouldEqual, "ada")
				So(q.Get("page"), ShouldEqual, "1")
				So(q.Get("limit"), ShouldEqual, "10")
			})
		})

		Convey("When htmx asks for the next page", func() {
			w := h.do(http.MethodGet, "/admin/talents?page=2", nil, cookie, true)
			So(w.Body.String(), ShouldNotContainSubstring, "<html")
			So(w.Body.String(), ShouldContainSubstring, `id="talents-table"`)
			So(h.upstream.last("/talents").URL.Query().Get("page"), ShouldEqual, "2")
		})

		Convey("When the backend rejects the credential", func() {
			h.upstream.forbidden = true
			w := h.do(http.MethodGet, "/admin/talents", nil, cookie, false)

			Convey("Then the session is cleared and login follows", func() {
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/auth/login")
				_, err := h.store.Load(context.Background(), cookie.Value)
				So(err, ShouldEqual, session.ErrNotFound)
			})
		})

		Convey("When a talent is activated through htmx", func() {
			confirm := h.do(http.MethodGet, "/admin/talents/5/activate?return=%2Fadmin%2Ftalents%3Fpage%3D1", nil, cookie, true)
			So(confirm.Code, ShouldEqual, http.StatusOK)
			So(confirm.Body.String(), ShouldContainSubstring, "Are you sure you want to activate this talent?")

			m := regexp.MustCompile(`name="nonce" value="([^"]+)"`).FindStringSubmatch(confirm.Body.String())
			So(m, ShouldHaveLength, 2)
			form := url.Values{"nonce": {m[1]}, "return": {"/admin/talents?page=1"}}

			first := h.do(http.MethodPost, "/admin/talents/5/activate", form, cookie, true)
			second := h.do(http.MethodPost, "/admin/talents/5/activate", form, cookie, true)

			Convey("Then the row flips once and the replay is refused", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(first.Body.String(), ShouldContainSubstring, `title="Deactivate"`)
				So(second.Code, ShouldEqual, http.StatusConflict)
				So(h.upstream.count(http.MethodPost, "/talents/activate/5"), ShouldEqual, 1)
			})
		})

		Convey("When a status change is posted without htmx", func() {
			confirm := h.do(http.MethodGet, "/admin/talents/5/deactivate", nil, cookie, false)
			m := regexp.MustCompile(`name="nonce" value="([^"]+)"`).FindStringSubmatch(confirm.Body.String())
			So(m, ShouldHaveLength, 2)

			w := h.do(http.MethodPost, "/admin/talents/5/deactivate", url.Values{"nonce": {m[1]}, "return": {"https://evil.example"}}, cookie, false)

			Convey("Then it returns to the list with a flash", func() {
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/admin/talents")
				list := h.do(http.MethodGet, "/admin/talents", nil, cookie, false)
				So(list.Body.String(), ShouldContainSubstring, "Talent deactivated.")
			})
		})

		Convey("When the editor opens", func() {
			w := h.do(http.MethodGet, "/admin/talents/5", nil, cookie, false)

			Convey("Then it is seeded from the record with options", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, `value="Ada Lovelace"`)
				So(body, ShouldContainSubstring, "Mathematician")
				So(body, ShouldContainSubstring, "SQL")
			})
		})

		Convey("When a blank name is saved", func() {
			form := url.Values{
				"full_name":        {" "},
				"email":            {"ada@example.com"},
				"job_title_id":     {"2"},
				"job_title_option": {"2:Mathematician"},
				"skill_option":     {"1:Go", "3:SQL", "junk"},
			}
			w := h.do(http.MethodPost, "/admin/talents/5", form, cookie, false)

			Convey("Then the editor re-renders without any backend request", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(w.Body.String(), ShouldContainSubstring, "Full Name is required.")
				So(h.upstream.total(), ShouldEqual, 0)
			})

			Convey("And the posted option lists are rendered back", func() {
				body := w.Body.String()
				So(body, ShouldContainSubstring, "Mathematician")
				So(body, ShouldContainSubstring, "SQL")
				So(body, ShouldContainSubstring, `name="skill_option" value="3:SQL"`)
				So(body, ShouldNotContainSubstring, "junk")
			})
		})

		Convey("When a valid edit is saved", func() {
			form := url.Values{
				"full_name":    {"Ada King"},
				"email":        {"ada@example.com"},
				"bio":          {"Countess"},
				"skills":       {"1", "3"},
				"skill_option": {"1:Go", "3:SQL"},
			}
			w := h.do(http.MethodPost, "/admin/talents/5", form, cookie, false)

			Convey("Then the payload carries the edit and a confirmation shows", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "Successfully updated!")
				So(w.Body.String(), ShouldContainSubstring, `data-flash-ttl="3000"`)

				var sent map[string]any
				So(json.Unmarshal([]byte(h.upstream.bodies["PUT /talents/5"]), &sent), ShouldBeNil)
				So(sent["full_name"], ShouldEqual, "Ada King")
				So(sent["job_title_id"], ShouldBeNil)
				So(sent["skills"], ShouldResemble, []any{float64(1), float64(3)})
				So(h.upstream.count(http.MethodGet, "/talents/5"), ShouldEqual, 0)
				So(h.upstream.count(http.MethodGet, "/job-titles"), ShouldEqual, 0)
				So(h.upstream.count(http.MethodGet, "/skills"), ShouldEqual, 0)
				So(h.upstream.total(), ShouldEqual, 1)
			})
		})

		Convey("When a listed talent is activated without htmx", func() {
			list := h.do(http.MethodGet, "/admin/talents?page=2", nil, cookie, false)
			So(list.Body.String(), ShouldContainSubstring, `title="Activate"`)

			confirm := h.do(http.MethodGet, "/admin/talents/5/activate?return=%2Fadmin%2Ftalents%3Fpage%3D2", nil, cookie, false)
			m := regexp.MustCompile(`name="nonce" value="([^"]+)"`).FindStringSubmatch(confirm.Body.String())
			So(m, ShouldHaveLength, 2)

			w := h.do(http.MethodPost, "/admin/talents/5/activate", url.Values{"nonce": {m[1]}, "return": {"/admin/talents?page=2"}}, cookie, false)

			Convey("Then the page it came from is shown with the row flipped", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, "Talent activated.")
				So(body, ShouldContainSubstring, `title="Deactivate"`)
				So(body, ShouldContainSubstring, "Page 2 of 2")
			})

			Convey("And the list is not loaded again", func() {
				So(h.upstream.count(http.MethodGet, "/talents"), ShouldEqual, 1)
				So(h.upstream.count(http.MethodPost, "/talents/activate/5"), ShouldEqual, 1)
			})
		})
	})
}

func TestFlashLifetime(t *testing.T) {
	Convey("Given a console configured with a five second flash", t, func() {
		h := newHarness(t, views.WithFlashTTL(5*time.Second))
		cookie := h.signedIn()

		Convey("When a flash is shown on the talent list", func() {
			_ = h.store.Save(context.Background(), cookie.Value, session.Data{Credential: "tok-1", Flash: "Talent deactivated."}, time.Hour)
			w := h.do(http.MethodGet, "/admin/talents", nil, cookie, false)

			Convey("Then it carries the configured lifetime", func() {
				So(w.Body.String(), ShouldContainSubstring, "Talent deactivated.")
				So(w.Body.String(), ShouldContainSubstring, `data-flash-ttl="5000"`)
				So(w.Body.String(), ShouldNotContainSubstring, `data-flash-ttl="3000"`)
			})
		})

		Convey("When a valid edit is saved", func() {
			w := h.do(http.MethodPost, "/admin/talents/5", url.Values{"full_name": {"Ada"}, "email": {"ada@example.com"}}, cookie, false)
			So(w.Body.String(), ShouldContainSubstring, `data-flash-ttl="5000"`)
		})
	})
}

func TestMiscPages(t *testing.T) {
	Convey("Given the console", t, func() {
		h := newHarness(t)

		Convey("Then /healthz serves metrics", func() {
			w := h.do(http.MethodGet, "/healthz", nil, nil, false)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the companies placeholder renders", func() {
			w := h.do(http.MethodGet, "/admin/companies", nil, h.signedIn(), false)
			So(w.Body.String(), ShouldContainSubstring, "List and manage companies here.")
		})

		Convey("Then every response carries a request id", func() {
			w := h.do(http.MethodGet, "/auth/login", nil, nil, false)
			_, err := uuid.Parse(w.Header().Get(web.RequestIDHeader))
			So(err, ShouldBeNil)
		})

		Convey("Then a bad talent id is not found", func() {
			w := h.do(http.MethodGet, "/admin/talents/abc", nil, h.signedIn(), false)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
