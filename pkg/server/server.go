// Package server exposes the stored records and a manual ingestion
// trigger over a thin JSON API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/threej-in/virtualfeed/internal/store"
	"github.com/threej-in/virtualfeed/pkg/ingest"
)

// Server provides the HTTP API.
type Server struct {
	store    store.Store
	orch     *ingest.Orchestrator
	thumbDir string
	port     int
	log      *zap.Logger

	// ingestMu serializes manually triggered runs with each other; the
	// scheduler is expected to be off when manual triggering is used.
	ingestMu sync.Mutex
}

// New creates a new HTTP server.
func New(st store.Store, orch *ingest.Orchestrator, thumbDir string, port int, log *zap.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:    st,
		orch:     orch,
		thumbDir: thumbDir,
		port:     port,
		log:      log,
	}
}

// ListenAndServe starts the HTTP server and blocks until ctx is
// cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/videos", s.handleListVideos)
		r.Get("/videos/{id}", s.handleGetVideo)
		r.Post("/videos/{id}/view", s.handleView)
		r.Post("/videos/{id}/like", s.handleLike)
		r.Get("/sources", s.handleSources)
		r.Post("/ingest", s.handleIngest)
	})
	if s.thumbDir != "" {
		r.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/",
			http.FileServer(http.Dir(s.thumbDir))))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("server listening", zap.Int("port", s.port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOpts{
		Source:       r.URL.Query().Get("source"),
		IncludeAdult: r.URL.Query().Get("adult") == "1",
		Limit:        100,
	}

	videos, err := s.store.ListVideos(r.Context(), opts)
	if err != nil {
		s.log.Error("list videos", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  videos,
		"count": len(videos),
	})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := s.store.GetVideo(r.Context(), id)
	if err != nil {
		s.log.Error("get video", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if v == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.IncrementViews(r.Context(), id); err != nil {
		s.log.Error("increment views", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.IncrementLikes(r.Context(), id); err != nil {
		s.log.Error("increment likes", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountBySource(r.Context())
	if err != nil {
		s.log.Error("count by source", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": counts})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.ingestMu.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "ingestion already running"})
		return
	}
	defer s.ingestMu.Unlock()

	stats, err := s.orch.Run(r.Context())
	if err != nil {
		// Cancellation mid-run; partial progress is already persisted.
		writeJSON(w, http.StatusOK, stats)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
