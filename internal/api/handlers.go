package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/fault"
	"github.com/mattjoyce/lingua/internal/journal"
	"github.com/mattjoyce/lingua/internal/log"
	"github.com/mattjoyce/lingua/internal/protocol"
)

const maxListLimit = 500

// handleQuery handles /{language} for every method.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.deps.Resource.Serve(w, r, command.ParseLanguage(chi.URLParam(r, "language")))
}

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Languages:     make([]string, 0, len(s.deps.Languages)),
	}
	if s.deps.Pool != nil {
		resp.Pool = s.deps.Pool.Stats()
	}
	for _, l := range s.deps.Languages {
		resp.Languages = append(resp.Languages, l.String())
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleListRequests handles GET /meta/requests?limit=N.
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		protocol.WriteError(w, fault.NotFound("request journal disabled"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			protocol.WriteError(w, fault.BadRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}

	entries, err := s.deps.Journal.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list requests", "error", err)
		protocol.WriteError(w, fault.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, RequestListResponse{Requests: entries})
}

// handleGetRequest handles GET /meta/requests/{correlation}.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		protocol.WriteError(w, fault.NotFound("request journal disabled"))
		return
	}
	correlation := chi.URLParam(r, "correlation")
	entry, err := s.deps.Journal.Get(r.Context(), correlation)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			protocol.WriteError(w, fault.NotFound("request %q not found", correlation))
			return
		}
		log.ForRequest(s.logger, correlation).Error("failed to retrieve request", "error", err)
		protocol.WriteError(w, fault.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// handleOpenAPI handles GET /openapi.json.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc(s.deps.Languages))
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
