// Package server exposes the deep-link state to a browser front end when no
// native shell is present: a last-link query and a WebSocket event stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LastLinker answers the get_last_link query.
type LastLinker interface {
	GetLastLink(ctx context.Context) ([]string, bool)
}

// LastLinkResponse is the body of GET /plugin/deep-link/last.
type LastLinkResponse struct {
	URLs []string `json:"urls"`
}

// Server is the headless HTTP surface.
type Server struct {
	links  LastLinker
	hub    *Hub
	logger *slog.Logger
	router chi.Router
}

// New builds the router. The hub is also the emitter handed to the deep-link
// state so every ingested link reaches connected clients.
func New(links LastLinker, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{links: links, hub: hub, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/plugin/deep-link", func(r chi.Router) {
		r.Get("/last", s.handleLast)
		r.Get("/events", hub.HandleWebSocket)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var resp LastLinkResponse
	if urls, ok := s.links.GetLastLink(ctx); ok {
		resp.URLs = urls
		if resp.URLs == nil {
			resp.URLs = []string{}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("[server] encode last link", "error", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	}
}
