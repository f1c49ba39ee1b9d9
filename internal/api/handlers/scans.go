package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/equiscan/server/internal/api/problem"
	"github.com/equiscan/server/internal/domain/scans"
	"github.com/equiscan/server/internal/domain/sources"
	"github.com/equiscan/server/internal/jobs"
)

type ScansHandler struct {
	sources sources.Repository
	scans   scans.Repository
	queue   jobs.Inserter
	env     string
}

func NewScansHandler(sourcesRepo sources.Repository, scansRepo scans.Repository, queue jobs.Inserter, env string) *ScansHandler {
	return &ScansHandler{sources: sourcesRepo, scans: scansRepo, queue: queue, env: env}
}

type scanResponse struct {
	ID               int64      `json:"id"`
	SourceID         int64      `json:"source_id"`
	Status           string     `json:"status"`
	Trigger          string     `json:"trigger"`
	EventsFound      int        `json:"events_found"`
	EventsUpserted   int        `json:"events_upserted"`
	EventsSkipped    int        `json:"events_skipped"`
	CompetitionCount int        `json:"competition_count"`
	TrainingCount    int        `json:"training_count"`
	Error            string     `json:"error,omitempty"`
	Warning          string     `json:"warning,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toScanResponse(s scans.Scan) scanResponse {
	return scanResponse{
		ID:               s.ID,
		SourceID:         s.SourceID,
		Status:           s.Status,
		Trigger:          s.Trigger,
		EventsFound:      s.EventsFound,
		EventsUpserted:   s.EventsUpserted,
		EventsSkipped:    s.EventsSkipped,
		CompetitionCount: s.CompetitionCount,
		TrainingCount:    s.TrainingCount,
		Error:            s.Error,
		Warning:          s.Warning,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
		CreatedAt:        s.CreatedAt,
	}
}

// ListBySource serves GET /api/v1/sources/{id}/scans, newest first.
func (h *ScansHandler) ListBySource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		problem.Validation(w, http.StatusBadRequest, "Invalid source ID", "id must be a positive integer")
		return
	}
	if _, err := h.sources.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, sources.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, "Source not found", nil, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, "Loading source failed", err, h.env)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			problem.Validation(w, http.StatusBadRequest, "Invalid limit", "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	list, err := h.scans.ListBySource(r.Context(), id, limit)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "Listing scans failed", err, h.env)
		return
	}
	resp := make([]scanResponse, 0, len(list))
	for _, s := range list {
		resp = append(resp, toScanResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": resp})
}

type createScanRequest struct {
	SourceID int64 `json:"source_id"`
}

// Create serves POST /api/v1/scans. With a source_id it queues one scan;
// without, one per enabled source. Queued scans return 202; a source that
// already has a scan in flight is reported, not re-queued.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			problem.Validation(w, http.StatusBadRequest, "Invalid request body", "body must be JSON")
			return
		}
	}

	var targets []sources.Source
	if req.SourceID != 0 {
		source, err := h.sources.GetByID(r.Context(), req.SourceID)
		if err != nil {
			if errors.Is(err, sources.ErrNotFound) {
				problem.Write(w, r, http.StatusNotFound, "Source not found", nil, h.env)
				return
			}
			problem.Write(w, r, http.StatusInternalServerError, "Loading source failed", err, h.env)
			return
		}
		targets = []sources.Source{*source}
	} else {
		enabled, err := h.sources.ListEnabled(r.Context())
		if err != nil {
			problem.Write(w, r, http.StatusInternalServerError, "Listing sources failed", err, h.env)
			return
		}
		if len(enabled) == 0 {
			problem.Validation(w, http.StatusConflict, "No enabled sources", "enable at least one source before triggering a scan")
			return
		}
		targets = enabled
	}

	queued := make([]scanResponse, 0, len(targets))
	for _, source := range targets {
		row, err := jobs.EnqueueScan(r.Context(), h.queue, h.scans, source.ID, scans.TriggerManual)
		switch {
		case errors.Is(err, jobs.ErrAlreadyQueued):
			if req.SourceID != 0 {
				problem.Validation(w, http.StatusConflict, "Scan already queued", "this source already has a scan queued or running")
				return
			}
			// Fan-out keeps going; the failed row documents the skip.
		case err != nil:
			problem.Write(w, r, http.StatusInternalServerError, "Queueing scan failed", err, h.env)
			return
		default:
			queued = append(queued, toScanResponse(*row))
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"scans": queued})
}
