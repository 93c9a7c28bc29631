package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	service "github.com/talentiave/cms/internal/app"
	"github.com/talentiave/cms/internal/config"
	"github.com/talentiave/cms/internal/session"
	"github.com/talentiave/cms/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(nil)

		Convey("Then it should not be started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.GetStats()["sessionBackend"], ShouldEqual, config.SessionBackendMemory)
		})

		Convey("And asking for its handler should fail", func() {
			_, err := svc.Handler()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service over the memory session backend", t, func() {
		svc := service.New(config.New(), service.WithLogger(logger.Nop()))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("When starting it twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it reports as started with empty bookkeeping", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["activeSessions"], ShouldEqual, 0)
				So(stats["pendingConfirmations"], ShouldEqual, int64(0))
				So(stats["inflightFetches"], ShouldEqual, 0)
			})

			Convey("And it serves a handler", func() {
				h, err := svc.Handler()
				So(err, ShouldBeNil)
				So(h, ShouldNotBeNil)
			})
		})

		Convey("When stopping and starting again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then it can be restarted", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Start(ctx), ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})
		})
	})
}

func TestService_RedisUnavailable(t *testing.T) {
	Convey("Given a service configured for an unreachable redis", t, func() {
		cfg := config.New()
		cfg.SessionBackend = config.SessionBackendRedis
		cfg.RedisAddr = "127.0.0.1:1"
		svc := service.New(cfg, service.WithLogger(logger.Nop()))
		defer svc.Stop()

		Convey("When starting it", func() {
			err := svc.Start(context.Background())

			Convey("Then start fails and nothing is served", func() {
				So(err, ShouldNotBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, herr := svc.Handler()
				So(herr, ShouldNotBeNil)
			})
		})
	})
}

func TestService_SweepsExpiredSessions(t *testing.T) {
	Convey("Given a memory store holding an expired session", t, func() {
		var now atomic.Int64
		now.Store(time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC).UnixNano())
		store := session.NewMemoryStore(session.WithMemoryClock(func() time.Time {
			return time.Unix(0, now.Load())
		}))
		ctx := context.Background()
		_ = store.Save(ctx, "stale", session.Data{Credential: "tok"}, time.Minute)
		_ = store.Save(ctx, "fresh", session.Data{Credential: "tok"}, time.Hour)
		now.Add(int64(2 * time.Minute))

		svc := service.New(config.New(),
			service.WithLogger(logger.Nop()),
			service.WithSessionStore(store),
			service.WithSweepInterval(10*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the janitor purges it in the background", func() {
			deadline := time.Now().Add(2 * time.Second)
			for store.Len() > 1 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			So(store.Len(), ShouldEqual, 1)
			_, err := store.Load(ctx, "fresh")
			So(err, ShouldBeNil)
		})
	})
}
