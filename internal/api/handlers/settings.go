package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/equiscan/server/internal/api/problem"
	"github.com/equiscan/server/internal/geocode"
)

// HomeSetter is the geocoder surface the settings endpoint needs.
type HomeSetter interface {
	SetHome(ctx context.Context, postcode string) error
}

type SettingsHandler struct {
	geocoder HomeSetter
	env      string
}

func NewSettingsHandler(geocoder HomeSetter, env string) *SettingsHandler {
	return &SettingsHandler{geocoder: geocoder, env: env}
}

type homePostcodeRequest struct {
	Postcode string `json:"postcode"`
}

// SetHomePostcode serves PUT /api/v1/settings/home-postcode. Changing home
// clears and recomputes every venue distance, so this can take a moment.
func (h *SettingsHandler) SetHomePostcode(w http.ResponseWriter, r *http.Request) {
	var req homePostcodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Validation(w, http.StatusBadRequest, "Invalid request body", "body must be JSON with a postcode field")
		return
	}
	if strings.TrimSpace(req.Postcode) == "" {
		problem.Validation(w, http.StatusUnprocessableEntity, "Invalid postcode", "postcode is required")
		return
	}

	if err := h.geocoder.SetHome(r.Context(), req.Postcode); err != nil {
		if errors.Is(err, geocode.ErrInvalidPostcode) {
			problem.Validation(w, http.StatusUnprocessableEntity, "Invalid postcode", err.Error())
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, "Updating home postcode failed", err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"postcode": req.Postcode})
}
