package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/medforge/casgen/internal/cache"
	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/engine"
	"github.com/medforge/casgen/internal/scenario"
	"github.com/medforge/casgen/internal/store"
	"github.com/medforge/casgen/internal/types"
	"github.com/medforge/casgen/internal/validation"
)

// CreateJobResponse is returned on successful job submission.
type CreateJobResponse struct {
	JobID                    string          `json:"job_id"`
	Status                   types.JobStatus `json:"status"`
	CreatedAt                time.Time       `json:"created_at"`
	EstimatedDurationSeconds int             `json:"estimated_duration_seconds"`
}

// ListJobsResponse is the paginated job listing.
type ListJobsResponse struct {
	Jobs   []*types.Job `json:"jobs"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ValidateResponse reports validation results without creating a job.
type ValidateResponse struct {
	OK       bool               `json:"ok"`
	Errors   []validation.Issue `json:"errors"`
	Warnings []validation.Issue `json:"warnings"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, invalidRequestEnvelope("request body unreadable or too large"))
		return
	}

	job, report, err := s.engine.CreateJob(r.Context(), raw)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, internalEnvelope(err.Error()))
		return
	}
	if report != nil && report.HasErrors() {
		status := http.StatusBadRequest
		for _, issue := range report.Errors {
			if issue.Code == validation.CodeQuotaExceeded {
				status = http.StatusUnprocessableEntity
			}
		}
		s.writeError(w, status, validation.NewValidationEnvelope(report))
		return
	}

	var cfg scenario.Config
	estimate := 1
	if err := json.Unmarshal(raw, &cfg); err == nil {
		estimate = engine.EstimateDuration(cfg.TotalPatients)
	}

	s.writeJSON(w, http.StatusCreated, &CreateJobResponse{
		JobID:                    job.JobID,
		Status:                   job.Status,
		CreatedAt:                job.CreatedAt,
		EstimatedDurationSeconds: estimate,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, invalidRequestEnvelope("request body unreadable or too large"))
		return
	}

	report := validation.NewReport()
	var cfg scenario.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		report.AddError(validation.CodeInvalidFormat, fmt.Sprintf("configuration is not valid JSON: %v", err), "")
	} else {
		cat, catErr := catalog.Load()
		if catErr != nil {
			s.writeError(w, http.StatusInternalServerError, internalEnvelope(catErr.Error()))
			return
		}
		_, report = scenario.Resolve(cfg, cat, s.cfg.MaxPatientsPerJob)
	}

	s.writeJSON(w, http.StatusOK, &ValidateResponse{
		OK:       !report.HasErrors(),
		Errors:   report.Errors,
		Warnings: report.Warnings,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, notFoundEnvelope("job "+jobID+" not found"))
			return
		}
		s.writeError(w, http.StatusInternalServerError, internalEnvelope(err.Error()))
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	jobs, total, err := s.store.ListJobs(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, internalEnvelope(err.Error()))
		return
	}
	if jobs == nil {
		jobs = []*types.Job{}
	}
	s.writeJSON(w, http.StatusOK, &ListJobsResponse{
		Jobs:   jobs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	cancelled, err := s.engine.Cancel(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, notFoundEnvelope("job "+jobID+" not found"))
			return
		}
		s.writeError(w, http.StatusInternalServerError, internalEnvelope(err.Error()))
		return
	}
	if !cancelled {
		s.writeError(w, http.StatusConflict, conflictEnvelope("job "+jobID+" is already in a terminal state"))
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": "cancelling",
	})
}

// handleDownload streams the job outputs as a tar archive. Only
// COMPLETED jobs have downloadable outputs; failed and cancelled jobs
// had theirs deleted.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, notFoundEnvelope("job "+jobID+" not found"))
			return
		}
		s.writeError(w, http.StatusInternalServerError, internalEnvelope(err.Error()))
		return
	}
	if job.Status != types.JobCompleted {
		s.writeError(w, http.StatusNotFound, notFoundEnvelope("job "+jobID+" has no downloadable outputs"))
		return
	}

	w.Header().Set("Content-Type", "application/x-tar")
	w.Header().Set("Content-Disposition", `attachment; filename="`+jobID+`.tar"`)
	if err := s.artifacts.WriteArchive(jobID, w); err != nil {
		// Headers are gone; all we can do is drop the connection.
		return
	}
}

func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.writeError(w, http.StatusServiceUnavailable, internalEnvelope("template storage requires the cache"))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, invalidRequestEnvelope("failed to read request body"))
		return
	}
	if !json.Valid(body) {
		s.writeError(w, http.StatusBadRequest, invalidRequestEnvelope("template body must be valid JSON"))
		return
	}
	if err := s.templates.PutTemplate(r.Context(), mux.Vars(r)["name"], body); err != nil {
		s.writeError(w, http.StatusInternalServerError, internalEnvelope(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.writeError(w, http.StatusServiceUnavailable, internalEnvelope("template storage requires the cache"))
		return
	}
	body, err := s.templates.GetTemplate(r.Context(), mux.Vars(r)["name"])
	if errors.Is(err, cache.ErrTemplateNotFound) {
		s.writeError(w, http.StatusNotFound, notFoundEnvelope("no such template"))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, internalEnvelope(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.writeError(w, http.StatusServiceUnavailable, internalEnvelope("template storage requires the cache"))
		return
	}
	if err := s.templates.DeleteTemplate(r.Context(), mux.Vars(r)["name"]); err != nil {
		s.writeError(w, http.StatusInternalServerError, internalEnvelope(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"workers": s.engine.Workers(),
	}

	host := map[string]interface{}{}
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		host["cpu_percent"] = cpuPercent[0]
	}
	if memInfo, err := mem.VirtualMemory(); err == nil && memInfo != nil {
		host["mem_used_bytes"] = memInfo.Used
		host["mem_available_bytes"] = memInfo.Available
	}
	if len(host) > 0 {
		resp["host"] = host
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func invalidRequestEnvelope(message string) *validation.ErrorEnvelope {
	return &validation.ErrorEnvelope{
		Error: validation.ErrorDetail{
			ErrorType:    validation.ErrorTypeInvalidArgument,
			ErrorCode:    "INVALID_REQUEST",
			ErrorMessage: message,
			Retryable:    false,
		},
	}
}
