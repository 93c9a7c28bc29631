package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("console"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.sessionsCreated.Inc()

			Convey("Then names and labels reflect the options", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_console_pre_sessions_created_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsEnabledGate(t *testing.T) {
	Convey("Given a disabled and an enabled manager", t, func() {
		off := NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
		on := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		for _, m := range []*Manager{off, on} {
			m.RecordHTTPRequest("/admin", "GET", "200")
			m.RecordUpstreamRequest("/talents", "GET", "200", 12)
			m.RecordSessionCreated()
			m.UpdateActiveSessions(3)
			m.UpdateSystemGoroutineCount(8)
		}

		Convey("Then only the enabled one records", func() {
			So(testutil.CollectAndCount(off.httpRequests), ShouldEqual, 0)
			So(testutil.CollectAndCount(off.upstreamRequests), ShouldEqual, 0)
			So(testutil.ToFloat64(off.sessionsCreated), ShouldEqual, 0)
			So(testutil.ToFloat64(off.activeSessions), ShouldEqual, 0)
			So(testutil.ToFloat64(off.systemGoroutineCount), ShouldEqual, 0)

			So(testutil.CollectAndCount(on.httpRequests), ShouldEqual, 1)
			So(testutil.ToFloat64(on.upstreamRequests.WithLabelValues("/talents", "GET", "200")), ShouldEqual, 1)
			So(testutil.ToFloat64(on.sessionsCreated), ShouldEqual, 1)
			So(testutil.ToFloat64(on.activeSessions), ShouldEqual, 3)
		})
	})

	Convey("Given the process-wide manager is re-initialised disabled", t, func() {
		Init(WithMetricsEnabled(false), WithRefreshInterval(250*time.Millisecond))
		defer Init()

		RecordAuthAttempt("login", "success")

		Convey("Then the package helpers honour it", func() {
			So(Enabled(), ShouldBeFalse)
			So(RefreshInterval(), ShouldEqual, 250*time.Millisecond)
			So(testutil.CollectAndCount(current().authAttempts), ShouldEqual, 0)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording upstream calls", func() {
			before := testutil.ToFloat64(current().upstreamRequests.WithLabelValues("/talents", "GET", "200"))
			RecordUpstreamRequest("/talents", "GET", "200", 12)
			RecordUpstreamRequest("/talents", "GET", "200", 30)

			Convey("Then the counter advances", func() {
				after := testutil.ToFloat64(current().upstreamRequests.WithLabelValues("/talents", "GET", "200"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording session invalidations", func() {
			before := testutil.ToFloat64(current().sessionsInvalidated.WithLabelValues("forbidden"))
			RecordSessionInvalidated("forbidden")
			So(testutil.ToFloat64(current().sessionsInvalidated.WithLabelValues("forbidden"))-before, ShouldEqual, 1)
		})

		Convey("When recording the remaining series", func() {
			So(func() {
				RecordHTTPRequest("/admin", "GET", "200")
				RecordHTTPRequestDuration("/admin", "GET", "200", 4)
				RecordUpstreamError("/links", "transport")
				RecordSessionCreated()
				UpdateActiveSessions(3)
				RecordAuthAttempt("login", "success")
				RecordValidationFailure("talent")
				RecordFetchSuperseded("talents")
				RecordTalentStatusChange("activate")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("/admin", "GET", "server_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
		})

		Convey("Then the registry exposes the namespace", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "talentiave_cms_"), ShouldBeTrue)
			}
		})
	})
}
