// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/league/internal/report"
)

// HistoryDependencies defines the interface for head-to-head lookups.
type HistoryDependencies interface {
	MatchHistory(ctx context.Context, name string) ([]report.HeadToHead, error)
}

// HistoryHandler handles match history requests.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

type historyResponse struct {
	Name      string              `json:"name"`
	Opponents []report.HeadToHead `json:"opponents"`
}

// HandleGetHistory handles GET /history/{name} requests. Checkpoint names
// containing slashes must be path-escaped.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/history/")
	name, err := url.PathUnescape(raw)
	if err != nil || name == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	opponents, err := h.deps.MatchHistory(r.Context(), name)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Name: name, Opponents: opponents})
}
