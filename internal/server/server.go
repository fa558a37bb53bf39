// Package server exposes the review session over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/engine"
	"github.com/lazypower/culler/internal/similarity"
	"github.com/lazypower/culler/internal/store"
)

// Session is the review engine as seen by the HTTP layer. *engine.Engine
// satisfies it.
type Session interface {
	Snapshot() engine.Snapshot
	Groups() []engine.GroupView
	Bucket() []string
	Advance() (bool, error)
	ToggleCheck(id string) error
	SetCheck(id string, checked bool) error
	DeleteBucket(ctx context.Context) (int, error)
	SetWindowMinutes(n int) error
	SetTuning(t similarity.Tuning)
	SetPreset(p similarity.Preset)
	ResetRetention() error
}

// Server is the culler HTTP API server.
type Server struct {
	session Session
	db      *store.DB
	bitmaps engine.BitmapProvider
	logger  *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server over a running session.
func New(session Session, db *store.DB, bitmaps engine.BitmapProvider, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		session: session,
		db:      db,
		bitmaps: bitmaps,
		logger:  logger,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/session", s.handleSession)
		r.Get("/groups", s.handleGroups)
		r.Post("/advance", s.handleAdvance)

		r.Post("/assets/{id}/toggle", s.handleToggle)
		r.Put("/assets/{id}/check", s.handleSetCheck)
		r.Get("/assets/{id}/thumbnail", s.handleThumbnail)

		r.Get("/bucket", s.handleBucket)
		r.Post("/bucket/delete", s.handleDeleteBucket)

		r.Put("/settings/window", s.handleSetWindow)
		r.Put("/settings/tuning", s.handleSetTuning)
		r.Put("/settings/preset", s.handleSetPreset)

		r.Get("/retention", s.handleListRetention)
		r.Get("/retention/{id}", s.handleGetRetention)
		r.Post("/retention/reset", s.handleResetRetention)
	})

	r.Get("/*", spaHandler())

	s.router = r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}
	snap := s.session.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
		"scanned": snap.Scanned,
		"total":   snap.Total,
	})
}
