package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/equipview/internal/archive"
	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/events"
	"github.com/JonMunkholm/equipview/internal/logging"
	"github.com/JonMunkholm/equipview/internal/store"
	"github.com/JonMunkholm/equipview/internal/view"
)

// DefaultMaxFileSize is the upload size limit when none is configured (5MB).
const DefaultMaxFileSize int64 = 5 << 20

// ServiceConfig holds the tunables of a Service. Zero values use defaults.
type ServiceConfig struct {
	HistoryLimit         int
	MaxFileSize          int64
	MaxConcurrentUploads int
	MaxUploadWait        time.Duration
	UploadTimeout        time.Duration // default: 2m
	Locale               string        // collation locale for sorting, default: en
	ReportMaxRows        int           // default: 50
}

// Service is the entry point used by transports. It owns the per-session
// managers and the optional archive and event collaborators.
type Service struct {
	store     store.Store
	registry  *Registry
	limiter   *UploadLimiter
	archiver  archive.Archiver
	publisher events.Publisher
	view      *view.Engine
	cfg       ServiceConfig
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithArchiver stores a copy of every accepted upload.
func WithArchiver(a archive.Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithPublisher announces dataset creation and deletion.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a Service over a record store.
func NewService(st store.Store, cfg ServiceConfig, opts ...Option) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 2 * time.Minute
	}
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	if cfg.ReportMaxRows <= 0 {
		cfg.ReportMaxRows = 50
	}

	s := &Service{
		store:     st,
		registry:  NewRegistry(st, cfg.HistoryLimit),
		limiter:   NewUploadLimiter(cfg.MaxConcurrentUploads, cfg.MaxUploadWait),
		archiver:  archive.Nop{},
		publisher: events.Nop{},
		view:      view.NewEngine(cfg.Locale),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// Limiter exposes the upload limiter, for draining on shutdown.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// Manager returns the lifecycle manager of a session. A newly created
// manager loads its history before it is returned; a failure to do so is
// logged and the empty manager is still returned.
func (s *Service) Manager(ctx context.Context, sess auth.Session) *Manager {
	m, created := s.registry.ForSession(sess)
	if created {
		if err := m.RefreshHistory(ctx); err != nil {
			logging.WithFields(ctx, "owner_id", sess.Actor.ID).
				Warn("initial history load failed", "error", err)
		}
	}
	return m
}

// EndSession discards the session's manager.
func (s *Service) EndSession(token string) {
	s.registry.Drop(token)
}

// ActiveSessions returns the number of sessions with a live manager.
func (s *Service) ActiveSessions() int {
	return s.registry.Len()
}
