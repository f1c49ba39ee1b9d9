package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/equiscan/server/internal/api/problem"
	"github.com/equiscan/server/internal/domain/competitions"
)

type CompetitionsHandler struct {
	repo competitions.Repository
	env  string
}

func NewCompetitionsHandler(repo competitions.Repository, env string) *CompetitionsHandler {
	return &CompetitionsHandler{repo: repo, env: env}
}

type competitionResponse struct {
	ID             int64     `json:"id"`
	SourceID       int64     `json:"source_id"`
	Name           string    `json:"name"`
	DateStart      string    `json:"date_start"`
	DateEnd        *string   `json:"date_end,omitempty"`
	VenueID        int64     `json:"venue_id"`
	Discipline     string    `json:"discipline,omitempty"`
	IsCompetition  bool      `json:"is_competition"`
	HasPonyClasses bool      `json:"has_pony_classes"`
	Classes        []string  `json:"classes"`
	URL            string    `json:"url,omitempty"`
	Description    string    `json:"description,omitempty"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

func toCompetitionResponse(c competitions.Competition) competitionResponse {
	resp := competitionResponse{
		ID:             c.ID,
		SourceID:       c.SourceID,
		Name:           c.Name,
		DateStart:      c.DateStart.Format("2006-01-02"),
		VenueID:        c.VenueID,
		Discipline:     c.Discipline,
		IsCompetition:  c.IsCompetition,
		HasPonyClasses: c.HasPonyClasses,
		Classes:        c.Classes,
		URL:            c.URL,
		Description:    c.Description,
		FirstSeenAt:    c.FirstSeenAt,
		LastSeenAt:     c.LastSeenAt,
	}
	if resp.Classes == nil {
		resp.Classes = []string{}
	}
	if c.DateEnd != nil {
		end := c.DateEnd.Format("2006-01-02")
		resp.DateEnd = &end
	}
	return resp
}

type competitionListResponse struct {
	Competitions []competitionResponse `json:"competitions"`
	Total        int                   `json:"total"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// List serves GET /api/v1/competitions. Non-competition listings (training,
// venue hire) are hidden unless is_competition=all or =false is passed.
func (h *CompetitionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, page, err := parseCompetitionQuery(r)
	if err != nil {
		problem.Validation(w, http.StatusBadRequest, "Invalid query parameter", err.Error())
		return
	}

	result, err := h.repo.List(r.Context(), filters, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "Listing competitions failed", err, h.env)
		return
	}

	resp := competitionListResponse{
		Competitions: make([]competitionResponse, 0, len(result.Competitions)),
		Total:        result.Total,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
	for _, c := range result.Competitions {
		resp.Competitions = append(resp.Competitions, toCompetitionResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CompetitionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		problem.Validation(w, http.StatusBadRequest, "Invalid competition ID", "id must be a positive integer")
		return
	}
	c, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, competitions.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, "Competition not found", nil, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, "Loading competition failed", err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toCompetitionResponse(*c))
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

func parseCompetitionQuery(r *http.Request) (competitions.Filters, competitions.Pagination, error) {
	q := r.URL.Query()
	var filters competitions.Filters

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filters, competitions.Pagination{}, fmt.Errorf("from must be YYYY-MM-DD")
		}
		filters.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filters, competitions.Pagination{}, fmt.Errorf("to must be YYYY-MM-DD")
		}
		filters.To = &t
	}
	filters.Discipline = q.Get("discipline")
	filters.VenueQuery = q.Get("venue")

	if raw := q.Get("pony"); raw != "" {
		pony, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, competitions.Pagination{}, fmt.Errorf("pony must be a boolean")
		}
		filters.PonyOnly = pony
	}

	// Competitions only, unless the caller asks otherwise.
	switch raw := q.Get("is_competition"); raw {
	case "", "true":
		isComp := true
		filters.IsCompetition = &isComp
	case "all":
		// no constraint
	case "false":
		isComp := false
		filters.IsCompetition = &isComp
	default:
		return filters, competitions.Pagination{}, fmt.Errorf("is_competition must be true, false, or all")
	}

	if raw := q.Get("max_distance"); raw != "" {
		miles, err := strconv.ParseFloat(raw, 64)
		if err != nil || miles < 0 {
			return filters, competitions.Pagination{}, fmt.Errorf("max_distance must be a non-negative number")
		}
		filters.MaxDistance = &miles
	}

	page := competitions.Pagination{Limit: defaultPageLimit}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filters, page, fmt.Errorf("limit must be a positive integer")
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		page.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filters, page, fmt.Errorf("offset must be a non-negative integer")
		}
		page.Offset = offset
	}
	return filters, page, nil
}

// Disciplines serves GET /api/v1/disciplines: stored discipline values with
// row counts, for filter dropdowns.
func (h *CompetitionsHandler) Disciplines(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.DistinctDisciplines(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "Listing disciplines failed", err, h.env)
		return
	}
	if counts == nil {
		counts = map[string]int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"disciplines": counts})
}
