package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
	app "github.com/talentiave/cms/internal/app"
	"github.com/talentiave/cms/internal/config"
	"github.com/talentiave/cms/pkg/logger"
	"github.com/talentiave/cms/pkg/metrics"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			_ = os.Setenv("CMS_ADDR", ":8080")
			_ = os.Setenv("CMS_TALENTS_PAGE_SIZE", "25")
			_ = os.Setenv("CMS_BACKEND_URL", "https://admin.talentiave.com/api/api/")
			defer func() {
				_ = os.Unsetenv("CMS_ADDR")
				_ = os.Unsetenv("CMS_TALENTS_PAGE_SIZE")
				_ = os.Unsetenv("CMS_BACKEND_URL")
			}()

			convey.Convey("Then the overrides are applied", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TalentsPageSize, convey.ShouldEqual, 25)
				convey.So(cfg.BackendURL, convey.ShouldEqual, "https://admin.talentiave.com/api/api")
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("CMS_SESSION_BACKEND", "etcd")
			defer func() { _ = os.Unsetenv("CMS_SESSION_BACKEND") }()

			convey.Convey("Then loading fails", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then a manager on a private registry is creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		if err := logger.Init(); err != nil {
			t.Fatalf("logger: %v", err)
		}

		convey.Convey("When the metrics updaters run until their context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			svc := app.New(nil, app.WithLogger(logger.Nop()))

			convey.So(func() { startSystemMetricsUpdater(ctx, 10*time.Millisecond) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, svc, 10*time.Millisecond) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the configured refresh interval drives the system updater", func() {
			metrics.Init(metrics.WithRefreshInterval(10 * time.Millisecond))
			defer metrics.Init()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			startSystemMetricsUpdater(ctx, metrics.RefreshInterval())

			convey.Convey("Then the goroutine gauge was sampled", func() {
				convey.So(gaugeValue(t, "talentiave_cms_system_goroutine_count"), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When updating metrics directly", func() {
			svc := app.New(nil, app.WithLogger(logger.Nop()))

			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}

func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a started service behind the configured HTTP server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		svc := app.New(config.New(), app.WithLogger(logger.Nop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h, err := svc.Handler()
		convey.So(err, convey.ShouldBeNil)
		srv := newHTTPServer(":0", h)

		convey.Convey("Then the server carries the timeouts", func() {
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
		})

		convey.Convey("And the login page is served", func() {
			ts := httptest.NewServer(srv.Handler)
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/auth/login")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()
			body, _ := io.ReadAll(resp.Body)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(string(body), convey.ShouldContainSubstring, "Sign In")
		})
	})
}
