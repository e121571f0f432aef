package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/jonathan/auto-applier/internal/runs"
	"github.com/jonathan/auto-applier/internal/store"
	"github.com/jonathan/auto-applier/internal/types"
)

// CreateJobRequest represents the request body for POST /api/jobs.
type CreateJobRequest struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	URL     string `json:"url"`
	Queue   bool   `json:"queue,omitempty"`
}

// ApplyResponse represents the response for POST /api/jobs/{id}/apply.
type ApplyResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// handleListJobs returns the most recently discovered jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	jobs, err := s.store.ListJobs(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, jobs)
}

// handleCreateJob registers a manually supplied job posting.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		s.errorResponse(w, http.StatusBadRequest, "url is required")
		return
	}

	if existing, err := s.store.FindJobByURL(r.Context(), req.URL); err == nil {
		s.jsonResponse(w, http.StatusConflict, existing)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	job := types.NewJob(req.Title, req.Company, req.URL, types.SourceManual)
	if req.Queue {
		job.Status = types.JobStatusQueued
	}
	if err := s.store.SaveJob(r.Context(), job); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, job)
}

// handleGetJob returns one job by id.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleListApplications returns a job's application attempts.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	apps, err := s.store.ListApplicationsByJob(r.Context(), job.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, apps)
}

// handleApply starts an application run for one job in the background.
// The run is claimed synchronously before replying, so two concurrent
// requests can never both be told the run started.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}

	if err := s.orch.Launch(job.ID); errors.Is(err, runs.ErrAlreadyRunning) {
		s.errorResponse(w, http.StatusConflict, "Run already in progress for this job")
		return
	} else if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to start run: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, ApplyResponse{JobID: job.ID, Status: "started"})
}

// handleAbort requests cooperative cancellation of a running job.
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.orch.Abort(id) {
		s.errorResponse(w, http.StatusNotFound, "No active run for this job")
		return
	}
	s.jsonResponse(w, http.StatusAccepted, ApplyResponse{JobID: id, Status: "cancelling"})
}

// handleRunStatus returns the live run snapshot for a job.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, active := s.orch.RunStatus(id)
	if !active {
		s.errorResponse(w, http.StatusNotFound, "No active run for this job")
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// handleSession starts a batch run in the background.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	go func() {
		if _, err := s.orch.RunSession(context.Background(), s.agg, s.session); err != nil {
			log.Printf("Session run failed: %v", err)
		}
	}()
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleScrape runs one synchronous discovery pass.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.agg == nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, "No discovery sources configured")
		return
	}
	res, err := s.agg.Discover(r.Context(), s.session.ScrapeLimit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Discovery failed: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleStats returns per-status job counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountJobsByStatus(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, counts)
}

// loadJob resolves the {id} path value to a job, writing the error
// response itself when the job cannot be served.
func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (*types.Job, bool) {
	id := r.PathValue("id")
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job ID is required")
		return nil, false
	}

	job, err := s.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Job not found")
		return nil, false
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return nil, false
	}
	return job, true
}
