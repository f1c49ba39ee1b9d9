package handlers

import (
	"net/http"
	"time"

	"github.com/equiscan/server/internal/api/problem"
	"github.com/equiscan/server/internal/domain/sources"
)

type SourcesHandler struct {
	repo sources.Repository
	env  string
}

func NewSourcesHandler(repo sources.Repository, env string) *SourcesHandler {
	return &SourcesHandler{repo: repo, env: env}
}

type sourceResponse struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	DisplayName string    `json:"display_name"`
	URL         string    `json:"url"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.List(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "Listing sources failed", err, h.env)
		return
	}
	resp := make([]sourceResponse, 0, len(all))
	for _, s := range all {
		resp = append(resp, sourceResponse{
			ID:          s.ID,
			Key:         s.Key,
			DisplayName: s.DisplayName,
			URL:         s.URL,
			Enabled:     s.Enabled,
			CreatedAt:   s.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": resp})
}
