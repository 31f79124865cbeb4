package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

type JobsHandler struct {
	jobs     ports.JobRunner
	autoSync ports.AutoSyncController
}

func NewJobsHandler(jobs ports.JobRunner, autoSync ports.AutoSyncController) *JobsHandler {
	return &JobsHandler{jobs: jobs, autoSync: autoSync}
}

type startJobRequest struct {
	Kind  string     `json:"kind"`
	Since *time.Time `json:"since"`
}

// Start godoc
// @Summary      Starts a background job
// @Description  kind is one of sync, issue, dispatch or full-process. since makes the sync step incremental.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Success      202
// @Failure      400,401,403
// @Router       /admin/jobs [post]
func (h *JobsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	if req.Kind == "" {
		req.Kind = string(domain.JobFullProcess)
	}
	kind, err := domain.ParseJobKind(req.Kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var opts domain.SyncOptions
	if req.Since != nil {
		opts.Since = req.Since.UTC()
	}

	job, err := h.jobs.Start(r.Context(), kind, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", "/admin/jobs/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, job)
}

func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.jobs.List())
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.Get(id)
	if err != nil {
		writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Cancel godoc
// @Summary      Cancels a background job
// @Tags         admin
// @Produce      json
// @Success      202
// @Failure      400,401,403,404,409
// @Router       /admin/jobs/{id} [delete]
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.Cancel(id)
	if err != nil {
		writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *JobsHandler) AutoSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.autoSync.Status())
}

type autoSyncRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetAutoSync godoc
// @Summary      Pauses or resumes the scheduled sync
// @Tags         admin
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400,401,403
// @Router       /admin/auto-sync [post]
func (h *JobsHandler) SetAutoSync(w http.ResponseWriter, r *http.Request) {
	var req autoSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		http.Error(w, "invalid request body: enabled is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.autoSync.SetEnabled(*req.Enabled))
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrJobFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
