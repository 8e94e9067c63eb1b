// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/league/internal/adapters/repository"
	"github.com/okian/league/internal/report"
	"github.com/okian/league/pkg/logger"
)

const defaultMaxLimit = 100

// Dependencies required by HTTP handlers. *report.Reporter satisfies it.
type Dependencies interface {
	LeaderboardDependencies
	HistoryDependencies
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLimit caps GET /leaderboard?limit.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the read-only league API.
type Server struct {
	healthHandler      *HealthHandler
	leaderboardHandler *LeaderboardHandler
	historyHandler     *HistoryHandler
	maxLimit           int
	logger             logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxLimit: defaultMaxLimit, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit)
	s.historyHandler = NewHistoryHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.instrument("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/leaderboard", s.instrument("leaderboard", s.leaderboardHandler.HandleGetLeaderboard))
	mux.HandleFunc("/history/", s.instrument("history", s.historyHandler.HandleGetHistory))
	s.logger.Debug(ctx, "api routes registered", logger.Int("max_limit", s.maxLimit))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates registry misses to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

var _ Dependencies = (*report.Reporter)(nil)
