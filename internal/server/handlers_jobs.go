package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/jobs"
)

// sseKeepAlive is the comment interval that keeps idle proxies from closing event streams.
const sseKeepAlive = 15 * time.Second

// handleCreateJob starts a label job for the latest batch and returns immediately.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Submit(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"success": true,
		"jobId":   job.ID,
		"message": "Processing started in background",
	})
}

// handleGetJob returns the current job record.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if HTTPStatus(err) == http.StatusNotFound {
			writeJSONError(w, http.StatusNotFound, "Job not found")
			return
		}
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleJobEvents streams job snapshots as server-sent events until the job is terminal.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	updates, err := jobs.Watch(r.Context(), s.deps.Jobs.Store(), id, s.cfg.WatchInterval)
	if err != nil {
		if HTTPStatus(err) == http.StatusNotFound {
			writeJSONError(w, http.StatusNotFound, "Job not found")
			return
		}
		s.failure(w, r, err)
		return
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	var last *jobs.Job
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				if last != nil && last.Status.Terminal() {
					sse.WriteComplete(last.ID, string(last.Status))
				} else if r.Context().Err() == nil {
					sse.WriteError("job stream ended")
				}
				return
			}
			last = job
			if err := sse.WriteEvent(eventJob, job); err != nil {
				s.logger.Debug("event stream closed", zap.String("job_id", id), zap.Error(err))
				return
			}
		case <-keepAlive.C:
			if err := sse.Comment("keep-alive"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
