package service_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	service "github.com/talentiave/cms/internal/app"
	"github.com/talentiave/cms/internal/config"
	"github.com/talentiave/cms/pkg/logger"
)

// upstream fakes the handful of marketplace endpoints a sign-in touches.
func upstream(calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			_, _ = io.WriteString(w, `{"user":{"token":"tok-1"}}`)
		case "/dashboard/stats":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"unauthorized"}`)
				return
			}
			_, _ = io.WriteString(w, `{"talents":4321,"proposals":1,"companies":2,"jobs":3}`)
		case "/links":
			_, _ = io.WriteString(w, `[]`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
		}
	})
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started console in front of a fake marketplace", t, func() {
		var calls atomic.Int32
		api := httptest.NewServer(upstream(&calls))
		defer api.Close()

		cfg := config.New()
		cfg.BackendURL = api.URL
		svc := service.New(cfg, service.WithLogger(logger.Nop()), service.WithLocation(time.UTC))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		h, err := svc.Handler()
		So(err, ShouldBeNil)
		console := httptest.NewServer(h)
		defer console.Close()

		jar, _ := cookiejar.New(nil)
		client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

		Convey("When an anonymous browser opens the dashboard", func() {
			resp, err := client.Get(console.URL + "/admin")
			So(err, ShouldBeNil)
			body := readBody(t, resp)

			Convey("Then it lands on the login form without touching the backend", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Request.URL.Path, ShouldEqual, "/auth/login")
				So(body, ShouldContainSubstring, "Sign In")
				So(calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the administrator signs in", func() {
			resp, err := client.PostForm(console.URL+"/auth/login", url.Values{
				"email":    {"admin@talentiave.com"},
				"password": {"secret"},
			})
			So(err, ShouldBeNil)
			body := readBody(t, resp)

			Convey("Then the dashboard renders with the backend's counts", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Request.URL.Path, ShouldEqual, "/admin")
				So(body, ShouldContainSubstring, "4,321")
				So(svc.GetStats()["activeSessions"], ShouldEqual, 1)
			})

			Convey("And logging out returns to the login form", func() {
				out, err := client.PostForm(console.URL+"/auth/logout", nil)
				So(err, ShouldBeNil)
				_ = readBody(t, out)
				So(out.Request.URL.Path, ShouldEqual, "/auth/login")

				again, err := client.Get(console.URL + "/admin")
				So(err, ShouldBeNil)
				_ = readBody(t, again)
				So(again.Request.URL.Path, ShouldEqual, "/auth/login")
				So(svc.GetStats()["activeSessions"], ShouldEqual, 0)
			})
		})

		Convey("When static assets and health are requested", func() {
			css, err := client.Get(console.URL + "/static/css/app.css")
			So(err, ShouldBeNil)
			cssBody := readBody(t, css)
			health, err := client.Get(console.URL + "/healthz")
			So(err, ShouldBeNil)
			_ = readBody(t, health)

			Convey("Then both are served", func() {
				So(css.StatusCode, ShouldEqual, http.StatusOK)
				So(strings.Contains(cssBody, "#244c56"), ShouldBeTrue)
				So(health.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
