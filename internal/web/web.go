package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"weekplan/internal/config"
	appLog "weekplan/internal/log"
	"weekplan/internal/session"
)

// Server exposes the planner over a JSON HTTP API.
type Server struct {
	cfg     *config.Config
	sess    *session.Session
	mux     *http.ServeMux
	refresh func(ctx context.Context) error
}

// NewServer constructs a new Server around an open session.
func NewServer(cfg *config.Config, sess *session.Session) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:  cfg,
		sess: sess,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// SetRefresher enables POST /api/refresh.
func (s *Server) SetRefresher(fn func(ctx context.Context) error) {
	s.refresh = fn
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="weekplan", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/sidebar", s.handleSidebar)

	s.mux.HandleFunc("POST /api/tasks", s.handleAddTask)
	s.mux.HandleFunc("POST /api/events", s.handleAddEvent)
	s.mux.HandleFunc("PATCH /api/items/{id}", s.handleUpdateItem)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleEditTask)
	s.mux.HandleFunc("PATCH /api/events/{id}", s.handleEditEvent)
	s.mux.HandleFunc("DELETE /api/items/{id}", s.handleRemoveItem)
	s.mux.HandleFunc("POST /api/tasks/{id}/schedule", s.handleScheduleTask)
	s.mux.HandleFunc("POST /api/events/{id}/move", s.handleMoveEvent)

	s.mux.HandleFunc("GET /api/conflicts", s.handleConflicts)
	s.mux.HandleFunc("GET /api/day", s.handleDay)
	s.mux.HandleFunc("GET /api/week", s.handleWeek)
	s.mux.HandleFunc("POST /api/week", s.handleGoToWeek)
	s.mux.HandleFunc("POST /api/selected-date", s.handleSelectedDate)

	s.mux.HandleFunc("POST /api/import", s.handleImport)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleExportICS)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
