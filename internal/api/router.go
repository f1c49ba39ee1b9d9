// Package api assembles the HTTP surface: the read endpoints, the manual
// scan trigger, the home postcode setting, health probes, and /metrics.
package api

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/api/handlers"
	"github.com/equiscan/server/internal/api/middleware"
	"github.com/equiscan/server/internal/jobs"
	"github.com/equiscan/server/internal/metrics"
	"github.com/equiscan/server/internal/storage"
)

// Deps carries everything the router needs, constructed by the serve
// command.
type Deps struct {
	Repo     storage.Repository
	Geocoder handlers.HomeSetter
	Queue    jobs.Inserter
	PingDB   func(context.Context) error
	Env      string
	Logger   zerolog.Logger
}

func NewRouter(deps Deps) http.Handler {
	competitionsHandler := handlers.NewCompetitionsHandler(deps.Repo.Competitions(), deps.Env)
	venuesHandler := handlers.NewVenuesHandler(deps.Repo.Venues(), deps.Env)
	sourcesHandler := handlers.NewSourcesHandler(deps.Repo.Sources(), deps.Env)
	scansHandler := handlers.NewScansHandler(deps.Repo.Sources(), deps.Repo.Scans(), deps.Queue, deps.Env)
	settingsHandler := handlers.NewSettingsHandler(deps.Geocoder, deps.Env)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(deps.PingDB))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/competitions", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(competitionsHandler.List),
	}))
	mux.Handle("/api/v1/competitions/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(competitionsHandler.Get),
	}))
	mux.Handle("/api/v1/disciplines", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(competitionsHandler.Disciplines),
	}))
	mux.Handle("/api/v1/venues", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(venuesHandler.List),
	}))
	mux.Handle("/api/v1/venues/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(venuesHandler.Get),
	}))
	mux.Handle("/api/v1/sources", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(sourcesHandler.List),
	}))
	mux.Handle("/api/v1/sources/{id}/scans", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(scansHandler.ListBySource),
	}))
	mux.Handle("/api/v1/scans", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(scansHandler.Create),
	}))
	mux.Handle("/api/v1/settings/home-postcode", methodMux(map[string]http.Handler{
		http.MethodPut: http.HandlerFunc(settingsHandler.SetHomePostcode),
	}))

	var handler http.Handler = mux
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

func methodMux(byMethod map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := byMethod[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(byMethod))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(byMethod map[string]http.Handler) string {
	methods := make([]string, 0, len(byMethod))
	for method := range byMethod {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
