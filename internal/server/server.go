/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the process together: database, cache, event bus,
// library, playlist store, generator, live watcher, and the HTTP router.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/cancion/internal/api"
	"github.com/friendsincode/cancion/internal/cache"
	"github.com/friendsincode/cancion/internal/config"
	"github.com/friendsincode/cancion/internal/db"
	"github.com/friendsincode/cancion/internal/events"
	"github.com/friendsincode/cancion/internal/export"
	"github.com/friendsincode/cancion/internal/generator"
	"github.com/friendsincode/cancion/internal/library"
	"github.com/friendsincode/cancion/internal/live"
	"github.com/friendsincode/cancion/internal/rules"
	"github.com/friendsincode/cancion/internal/store"
	"github.com/friendsincode/cancion/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db        *gorm.DB
	cache     *cache.Cache
	bus       *events.Bus
	library   *library.Store
	store     *store.Store
	generator *generator.Service
	watcher   *live.Watcher
	api       *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		songCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = songCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	s.library = library.NewStore(database, s.bus, s.logger)
	s.store = store.New(database, s.logger)

	var exporter export.Exporter = export.Noop{}
	if s.cfg.ExportEnabled {
		client := export.NewSpotifyClient(context.Background(),
			s.cfg.SpotifyClientID, s.cfg.SpotifyClientSecret, s.cfg.SpotifyRefreshToken)
		exporter = export.NewSpotify(client, s.cfg.SpotifyUserID, s.logger)
	}

	var source library.SongSource = s.library
	if s.cache != nil {
		source = cache.NewCachedSource(s.library, s.cache)
	}

	matchCfg := rules.MatchConfig{CaseInsensitive: s.cfg.MatchCaseInsensitive}
	limitCfg := rules.LimitConfig{PassNullDurations: s.cfg.LimitPassNullDurations}
	s.generator = generator.NewService(s.store, source, exporter, matchCfg, limitCfg, s.logger)

	s.watcher = live.NewWatcher(s.store, s.generator, s.bus, s.logger)

	s.api = api.New(s.store, s.library, s.generator, s.logger)

	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.watcher.Run(ctx)
	}()

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.cache.WatchInvalidation(ctx, s.bus)
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
