package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/equiscan/server/internal/api/problem"
	"github.com/equiscan/server/internal/domain/venues"
)

type VenuesHandler struct {
	repo venues.Repository
	env  string
}

func NewVenuesHandler(repo venues.Repository, env string) *VenuesHandler {
	return &VenuesHandler{repo: repo, env: env}
}

type venueResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Postcode      string    `json:"postcode,omitempty"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	DistanceMiles *float64  `json:"distance_miles,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toVenueResponse(v venues.Venue) venueResponse {
	return venueResponse{
		ID:            v.ID,
		Name:          v.Name,
		Postcode:      v.Postcode,
		Latitude:      v.Latitude,
		Longitude:     v.Longitude,
		DistanceMiles: v.DistanceMiles,
		CreatedAt:     v.CreatedAt,
	}
}

func (h *VenuesHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.List(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "Listing venues failed", err, h.env)
		return
	}
	resp := make([]venueResponse, 0, len(all))
	for _, v := range all {
		resp = append(resp, toVenueResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": resp})
}

func (h *VenuesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		problem.Validation(w, http.StatusBadRequest, "Invalid venue ID", "id must be a positive integer")
		return
	}
	v, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, venues.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, "Venue not found", nil, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, "Loading venue failed", err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toVenueResponse(*v))
}
