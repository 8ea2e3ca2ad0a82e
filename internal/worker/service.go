package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/thebtf/tailor/internal/blockrules"
	"github.com/thebtf/tailor/internal/config"
	gormdb "github.com/thebtf/tailor/internal/db/gorm"
	"github.com/thebtf/tailor/internal/reasoning"
	"github.com/thebtf/tailor/internal/session"
	redisstore "github.com/thebtf/tailor/internal/store/redis"
)

// Stats tracks service counters.
type Stats struct {
	EventsIngested int64
	Decisions      int64
	Fallbacks      int64
}

// Service is the worker service: it owns the session manager, the block
// rule engine, and the reasoning client, and exposes them over HTTP.
type Service struct {
	version string
	config  *config.Config

	sessions  *session.Manager
	rules     *blockrules.Engine
	reasoner  reasoning.Client
	watcher   *blockrules.Watcher
	dbStore   *gormdb.Store
	cache     *redisstore.CachedStore

	router    *chi.Mux
	server    *http.Server
	startTime time.Time

	// decideGroup coalesces concurrent identical decide calls.
	decideGroup singleflight.Group

	stats Stats
}

// NewService wires the service from configuration. A missing database DSN
// degrades to in-memory sessions; a missing reasoning URL means every
// decision is served from the static fallback.
func NewService(version string) (*Service, error) {
	cfg := config.Get()

	s := &Service{
		version:   version,
		config:    cfg,
		startTime: time.Now(),
	}

	var store session.Store
	if cfg.DatabaseDSN != "" {
		db, err := gormdb.NewStore(gormdb.Config{DSN: cfg.DatabaseDSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		s.dbStore = db
		store = gormdb.NewStateStore(db)
		if cfg.RedisAddr != "" {
			s.cache = redisstore.NewCachedStore(cfg.RedisAddr, store, 0)
			store = s.cache
		}
	} else {
		log.Warn().Msg("No database DSN configured, sessions are in-memory only")
	}
	s.sessions = session.NewManager(store)

	rules := blockrules.DefaultCatalog
	if cfg.RulesPath != "" {
		loaded, err := blockrules.LoadCatalog(cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load rule overlay: %w", err)
		}
		rules = loaded
	}
	s.rules = blockrules.NewEngine(rules)

	if cfg.RulesPath != "" {
		w, err := blockrules.NewWatcher(s.rules, cfg.RulesPath)
		if err != nil {
			log.Warn().Err(err).Msg("Rule overlay watcher unavailable")
		} else {
			s.watcher = w
		}
	}

	if cfg.ReasoningURL != "" {
		s.reasoner = reasoning.NewHTTPClient(cfg.ReasoningURL, time.Duration(cfg.ReasoningTimeoutMs)*time.Millisecond)
	} else {
		log.Warn().Msg("No reasoning URL configured, decisions will use static fallbacks")
	}

	s.router = chi.NewRouter()
	s.setupRoutes()
	return s, nil
}

func (s *Service) setupRoutes() {
	s.router.Use(SecurityHeaders)
	s.router.Use(RequestID)
	s.router.Use(RequestLogger)

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/events", s.handleIngestEvent)
			r.Post("/dwell", s.handleDwell)
			r.Get("/profile", s.handleProfile)
			r.Post("/reset", s.handleReset)
			r.Post("/decide", s.handleDecide)
		})
	})
}

// Start runs the HTTP server until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.WorkerPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", s.config.WorkerPort).Str("version", s.version).Msg("Worker listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops the server and releases resources.
func (s *Service) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	s.sessions.Close()
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.dbStore != nil {
		_ = s.dbStore.Close()
	}
	log.Info().Msg("Worker stopped")
	return firstErr
}

// Router exposes the handler for tests.
func (s *Service) Router() http.Handler { return s.router }

func (s *Service) bumpEvents() { atomic.AddInt64(&s.stats.EventsIngested, 1) }

func (s *Service) bumpDecisions(fallback bool) {
	atomic.AddInt64(&s.stats.Decisions, 1)
	if fallback {
		atomic.AddInt64(&s.stats.Fallbacks, 1)
	}
}
