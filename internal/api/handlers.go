package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
)

// latestSuccessScanDepth bounds how far back the latest-success lookup
// walks the ledger. A success older than this many probability-update
// runs reports as absent.
const latestSuccessScanDepth = 50

// listResponse is the envelope for collection endpoints.
type listResponse struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

// objectResponse is the envelope for single-object endpoints.
type objectResponse struct {
	Data any `json:"data"`
}

// errorResponse is the envelope for error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// handleListProbabilities serves GET /api/v1/probabilities with
// optional confederation, status and limit filters. Rows come back
// ordered by probability descending, team ascending.
func (s *Server) handleListProbabilities(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProbabilityFilter{}

	if raw := r.URL.Query().Get("confederation"); raw != "" {
		confed, err := models.ParseConfederation(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Confederation = confed
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseQualificationStatus(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"), 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = limit

	probs, err := s.probs.List(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list probabilities")
		s.respondError(w, http.StatusInternalServerError, "failed to list probabilities")
		return
	}

	s.respondJSON(w, http.StatusOK, listResponse{Data: probs, Count: len(probs)})
}

// handleConfederationProbabilities serves
// GET /api/v1/probabilities/{confederation}.
func (s *Server) handleConfederationProbabilities(w http.ResponseWriter, r *http.Request) {
	confed, err := models.ParseConfederation(mux.Vars(r)["confederation"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	probs, err := s.probs.List(r.Context(), repository.ProbabilityFilter{Confederation: confed})
	if err != nil {
		s.logger.WithError(err).WithField("confederation", confed).Error("Failed to list probabilities")
		s.respondError(w, http.StatusInternalServerError, "failed to list probabilities")
		return
	}

	s.respondJSON(w, http.StatusOK, listResponse{Data: probs, Count: len(probs)})
}

// handleStats serves GET /api/v1/stats: table totals, qualified and
// in-progress counts and the per-confederation breakdown.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.probs.Stats(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to compute stats")
		s.respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	s.respondJSON(w, http.StatusOK, objectResponse{Data: stats})
}

// handleRecentRuns serves GET /api/v1/runs/recent with optional limit
// and job_type filters, newest first.
func (s *Server) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), s.recentLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var jobType models.JobType
	if raw := r.URL.Query().Get("job_type"); raw != "" {
		jobType, err = models.ParseJobType(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	runs, err := s.runs.GetRecent(r.Context(), jobType, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list recent runs")
		s.respondError(w, http.StatusInternalServerError, "failed to list recent runs")
		return
	}

	s.respondJSON(w, http.StatusOK, listResponse{Data: runs, Count: len(runs)})
}

// handleLatestSuccess serves GET /api/v1/runs/latest-success: the most
// recent probability update that completed with status success, the
// dashboard's "data as of" anchor.
func (s *Server) handleLatestSuccess(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.GetRecent(r.Context(), models.JobTypeProbabilityUpdate, latestSuccessScanDepth)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query run ledger")
		s.respondError(w, http.StatusInternalServerError, "failed to query run ledger")
		return
	}

	for _, run := range runs {
		if run.Status == models.RunStatusSuccess {
			s.respondJSON(w, http.StatusOK, objectResponse{Data: run})
			return
		}
	}

	s.respondError(w, http.StatusNotFound, "no successful probability update recorded")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, errorResponse{Error: msg})
}

// parseLimit parses an optional limit query parameter, falling back to
// def when absent and clamping to maxListLimit.
func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}
