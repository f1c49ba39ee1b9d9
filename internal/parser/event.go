package parser

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ExtractedEvent is the raw, un-classified record a parser emits. Fields
// carry data exactly as extracted; Discipline is an optional free-text hint,
// never a canonical value. The orchestrator normalizes, classifies, and
// resolves everything downstream.
type ExtractedEvent struct {
	Name           string   `json:"name" validate:"required"`
	DateStart      string   `json:"date_start" validate:"required,datetime=2006-01-02"`
	DateEnd        string   `json:"date_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	VenueName      string   `json:"venue_name" validate:"required"`
	VenuePostcode  string   `json:"venue_postcode,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Discipline     string   `json:"discipline,omitempty"`
	HasPonyClasses bool     `json:"has_pony_classes,omitempty"`
	Classes        []string `json:"classes,omitempty"`
	URL            string   `json:"url,omitempty"`
	Description    string   `json:"description,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate enforces the parser boundary: name, ISO date_start, and
// venue_name are required. The orchestrator skips (and counts) events that
// fail here.
func (e ExtractedEvent) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("extracted event invalid: %w", err)
	}
	return nil
}
