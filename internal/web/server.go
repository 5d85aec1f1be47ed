// Package web provides the HTTP API for uploading equipment CSVs and
// browsing the resulting datasets.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/config"
	"github.com/JonMunkholm/equipview/internal/core"
	mw "github.com/JonMunkholm/equipview/internal/web/middleware"
)

// Server is the HTTP server for the equipment dataset service.
type Server struct {
	service  *core.Service
	sessions auth.Sessions
	keys     *auth.APIKeys
	counter  mw.Counter
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithRateCounter overrides the in-memory rate limit counter, for example
// with a Redis counter shared between instances.
func WithRateCounter(c mw.Counter) Option {
	return func(s *Server) { s.counter = c }
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, sessions auth.Sessions, keys *auth.APIKeys, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		service:  service,
		sessions: sessions,
		keys:     keys,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.counter == nil {
		s.counter = mw.NewMemoryCounter()
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.ClientContext)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(mw.RateLimit(s.counter, "all", s.cfg.Rate.RequestsPerMinute, time.Minute, s.respondError))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(mw.SessionAuth(s.sessions, s.cfg.Session.CookieName, s.respondError))

			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(mw.RateLimit(s.counter, "upload", s.cfg.Rate.UploadLimit, time.Minute, s.respondError))
				}
				r.Post("/preview", s.handlePreview)
				r.Post("/datasets", s.handleUpload)
			})

			r.Get("/datasets", s.handleHistory)
			r.Get("/datasets/current", s.handleCurrent)
			r.Get("/datasets/current/report", s.handleReport)
			r.Get("/datasets/current/export", s.handleExport)
			r.Post("/datasets/{datasetID}/select", s.handleSelect)
			r.Delete("/datasets/{datasetID}", s.handleDelete)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// The report page inlines its stylesheet.
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'")
		}

		next.ServeHTTP(w, r)
	})
}
