// Package service assembles the admin console: session storage, the backend
// client, the screen controllers and the HTTP adapters that serve them.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/talentiave/cms/internal/adapters/http/site"
	"github.com/talentiave/cms/internal/adapters/http/web"
	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/internal/config"
	"github.com/talentiave/cms/internal/domain/dedupe"
	"github.com/talentiave/cms/internal/fetch"
	"github.com/talentiave/cms/internal/session"
	"github.com/talentiave/cms/internal/views"
	"github.com/talentiave/cms/pkg/logger"
	"github.com/talentiave/cms/pkg/metrics"
)

// ErrNotStarted is returned when the handler is requested before Start.
var ErrNotStarted = errors.New("service not started")

const defaultSweepInterval = time.Minute

// Service owns the console's long-lived components.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store    session.Store
	memory   *session.MemoryStore
	redis    *session.RedisStore
	ledger   dedupe.Ledger
	fetches  *fetch.Registry
	views    *views.Views
	sessions *session.Manager
	handler  http.Handler

	// Configuration
	httpClient    *http.Client
	location      *time.Location
	sweepInterval time.Duration

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSessionStore replaces the store selected by configuration.
func WithSessionStore(store session.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithHTTPClient sets the client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithLocation sets the zone date inputs are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithSweepInterval sets how often expired in-memory sessions are purged.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// New constructs a Service for cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:           cfg,
		location:      time.Local,
		sweepInterval: defaultSweepInterval,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the background janitor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting admin console...",
		logger.String("backend", s.cfg.BackendURL),
		logger.String("sessionBackend", s.cfg.SessionBackend),
	)

	if err := s.openStore(ctx); err != nil {
		return err
	}

	client := backend.New(s.cfg.BackendURL,
		backend.WithTimeout(s.cfg.UpstreamTimeout()),
		backend.WithHTTPClient(s.httpClient),
		backend.WithLogger(s.logger.Named("backend")),
	)
	s.ledger = dedupe.NewInMemoryLedger(dedupe.WithMaxSize(s.cfg.ConfirmNonceCapacity))
	s.fetches = fetch.NewRegistry()
	s.views = views.New(client,
		views.WithPageSize(s.cfg.TalentsPageSize),
		views.WithFlashTTL(s.cfg.FlashTTL()),
		views.WithLedger(s.ledger),
		views.WithRegistry(s.fetches),
		views.WithLogger(s.logger.Named("views")),
	)
	s.sessions = session.NewManager(s.store,
		session.WithTTL(s.cfg.SessionTTL()),
		session.WithSecureCookie(s.cfg.SessionCookieSecure),
	)

	srv, err := web.NewServer(s.views, s.sessions,
		web.WithLogger(s.logger.Named("http")),
		web.WithLocation(s.location),
	)
	if err != nil {
		s.closeStore()
		return fmt.Errorf("build web server: %w", err)
	}
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	srv.Register(ctx, mux)
	s.handler = mux

	if s.memory != nil {
		s.wg.Add(1)
		go s.sweepLoop(s.stopCh)
	}

	s.started = true
	s.logger.Info(ctx, "admin console started",
		logger.Int("pageSize", s.cfg.TalentsPageSize),
		logger.Duration("flashTTL", s.cfg.FlashTTL()),
		logger.Duration("sessionTTL", s.cfg.SessionTTL()),
	)
	return nil
}

// openStore selects the session store, honoring an injected one.
func (s *Service) openStore(ctx context.Context) error {
	if s.store != nil {
		if m, ok := s.store.(*session.MemoryStore); ok {
			s.memory = m
		}
		return nil
	}
	switch s.cfg.SessionBackend {
	case config.SessionBackendRedis:
		client := session.NewRedisClient(session.RedisOptions{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})
		rs := session.NewRedisStore(client, s.cfg.RedisPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return err
		}
		s.redis = rs
		s.store = rs
	default:
		s.memory = session.NewMemoryStore()
		s.store = s.memory
	}
	return nil
}

func (s *Service) closeStore() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing redis failed", logger.Error(err))
		}
	}
}

func (s *Service) sweepLoop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			before := s.memory.Len()
			remaining := s.memory.Sweep(context.Background())
			metrics.UpdateActiveSessions(remaining)
			if removed := before - remaining; removed > 0 {
				s.logger.Debug(context.Background(), "expired sessions purged", logger.Int("removed", removed))
			}
		}
	}
}

// Stop halts the janitor and releases the session store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping admin console...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()
	s.closeStore()

	s.started = false
	s.stopCh = make(chan struct{})
	s.logger.Info(context.Background(), "admin console stopped")
}

// Handler returns the routed HTTP handler.
func (s *Service) Handler() (http.Handler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.handler, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"sessionBackend": s.cfg.SessionBackend,
		"pageSize":       s.cfg.TalentsPageSize,
	}
	if !s.started {
		return stats
	}

	stats["pendingConfirmations"] = s.ledger.Size()
	stats["inflightFetches"] = s.fetches.Len()
	if s.memory != nil {
		active := s.memory.Len()
		stats["activeSessions"] = active
		metrics.UpdateActiveSessions(active)
	}
	return stats
}
