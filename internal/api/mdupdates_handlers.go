package api

import (
	"net/http"

	"github.com/JakeFAU/lockss-laaws/internal/paging"
	"github.com/JakeFAU/lockss-laaws/internal/projection"
)

const jobsCollection = "jobs"

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	serveCursorPage(s, w, r, jobsCollection, "jobs", projection.Jobs(s.deps.Jobs),
		func(j projection.JobItem) jobDTO { return toJobDTO(j.Job) })
}

// scheduleJob handles POST /v1/mdupdates with {auid, updateType}.
func (s *Server) scheduleJob(w http.ResponseWriter, r *http.Request) {
	var req scheduleJobRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, jobsCollection, err)
		return
	}
	if req.AuID == "" {
		s.fail(w, r, jobsCollection, paging.NewValidationError("auid", "", errRequired))
		return
	}
	jobType, err := projection.ParseJobType(req.UpdateType)
	if err != nil {
		s.fail(w, r, jobsCollection, err)
		return
	}
	job, err := s.deps.Jobs.Schedule(r.Context(), req.AuID, jobType)
	if err != nil {
		s.fail(w, r, jobsCollection, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobDTO(job))
}

// deleteAllJobs answers with the bare number of removed jobs.
func (s *Server) deleteAllJobs(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Jobs.RemoveAllJobs(r.Context())
	if err != nil {
		s.fail(w, r, jobsCollection, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// getJob answers with the job's status only; listings carry the full job.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "jobid")
	if err != nil {
		s.fail(w, r, jobsCollection, err)
		return
	}
	job, err := s.deps.Jobs.GetJob(r.Context(), id)
	if err != nil {
		s.fail(w, r, jobsCollection, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(job).Status)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "jobid")
	if err != nil {
		s.fail(w, r, jobsCollection, err)
		return
	}
	job, err := s.deps.Jobs.RemoveJob(r.Context(), id)
	if err != nil {
		s.fail(w, r, jobsCollection, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(job))
}
