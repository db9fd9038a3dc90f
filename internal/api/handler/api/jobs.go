package api

import (
	"net/http"

	"github.com/newthinker/pairdash/internal/api/job"
	"github.com/newthinker/pairdash/internal/api/response"
)

// JobsHandler exposes async job status.
type JobsHandler struct {
	jobs *job.Store
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs *job.Store) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// List returns every tracked job.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.jobs.List())
}

// Get returns one job by id.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}
