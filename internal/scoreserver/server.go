// Package scoreserver implements the reference scoring service that stores
// simulator attempts and serves per-user history.
package scoreserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/blastrain/internal/model"
	"github.com/verte-zerg/blastrain/internal/scoreapi"
	"github.com/verte-zerg/blastrain/internal/store"
)

const (
	maxRequestBytes = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// Repository is the storage used by the server.
type Repository interface {
	InsertResult(ctx context.Context, attempt model.AttemptResult) (resultID, userID int64, err error)
	History(ctx context.Context, username string, limit int) (model.History, error)
}

// Server serves the scoring HTTP API.
type Server struct {
	repo  Repository
	clock clockwork.Clock
	limit int
}

// New returns a Server backed by repo. A nil clock uses the real clock.
func New(repo Repository, clock clockwork.Clock) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{repo: repo, clock: clock, limit: store.DefaultHistoryLimit}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.NotFoundHandler = http.HandlerFunc(notFound)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	for _, path := range []string{"/", "/results"} {
		r.HandleFunc(path, s.saveResult).Methods(http.MethodPost)
		r.HandleFunc(path, s.getHistory).Methods(http.MethodGet)
		r.HandleFunc(path, preflight).Methods(http.MethodOptions)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", scoreapi.AttemptIDHeader},
	})
	return c.Handler(r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("scoring service listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down scoring service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) saveResult(w http.ResponseWriter, r *http.Request) {
	var req scoreapi.SubmitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	attempt := req.Attempt()
	attempt.ID = r.Header.Get(scoreapi.AttemptIDHeader)
	attempt.CompletedAt = s.clock.Now()
	resultID, userID, err := s.repo.InsertResult(r.Context(), attempt)
	if err != nil {
		if errors.Is(err, store.ErrUsernameRequired) {
			writeError(w, http.StatusBadRequest, "username is required")
			return
		}
		log.Error().Err(err).Str("username", attempt.Username).Msg("failed to save result")
		writeError(w, http.StatusInternalServerError, "failed to save result")
		return
	}

	log.Info().
		Str("username", attempt.Username).
		Str("attempt_id", attempt.ID).
		Int("score", attempt.Score).
		Bool("passed", attempt.Passed).
		Int64("result_id", resultID).
		Msg("result saved")
	writeJSON(w, http.StatusOK, scoreapi.SubmitResponse{Success: true, ResultID: resultID, UserID: userID})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	h, err := s.repo.History(r.Context(), username, s.limit)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to load history")
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	resp := scoreapi.HistoryResponse{
		Results:  make([]scoreapi.ResultRecord, 0, len(h.Results)),
		Progress: scoreapi.NewProgressRecord(h.Progress),
	}
	for _, rec := range h.Results {
		resp.Results = append(resp.Results, scoreapi.NewResultRecord(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// pinger is implemented by repositories that can report their health.
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.repo.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("storage health check failed")
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Debug().Err(err).Msg("failed to write health response")
	}
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, scoreapi.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}
