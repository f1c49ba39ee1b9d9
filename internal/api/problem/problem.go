// Package problem writes RFC 7807 problem+json error responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

type Details struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Write emits a problem+json response. Outside development the underlying
// error is logged but not echoed to the client.
func Write(w http.ResponseWriter, r *http.Request, status int, title string, err error, env string) {
	p := Details{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: http.StatusText(status),
	}
	if err != nil {
		if env == "development" || env == "test" {
			p.Detail = err.Error()
		}
		if status >= http.StatusInternalServerError {
			zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Str("title", title).Msg("request failed")
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// Validation reports a client error with a human-readable detail that is
// always safe to echo.
func Validation(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Details{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
