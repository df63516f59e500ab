package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"last-mile-planner/internal/api/handlers"
	"last-mile-planner/internal/platform/metrics"
	"last-mile-planner/internal/ports"
	"last-mile-planner/internal/session"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(sessions *session.Manager, events ports.EventStream, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	v := handlers.NewValidator()

	courierHandler := &handlers.CourierHandler{Registry: sessions.Registry(), Validator: v}
	sessionHandler := &handlers.SessionHandler{Sessions: sessions, Live: events, Validator: v}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /couriers", courierHandler.List)
	mux.HandleFunc("POST /couriers", courierHandler.Create)
	mux.HandleFunc("POST /couriers/{id}/active", courierHandler.SetActive)

	mux.HandleFunc("GET /sessions", sessionHandler.List)
	mux.HandleFunc("POST /sessions", sessionHandler.Create)
	mux.HandleFunc("GET /sessions/{id}", sessionHandler.Get)
	mux.HandleFunc("POST /sessions/{id}/depot", sessionHandler.SetDepot)
	mux.HandleFunc("POST /sessions/{id}/batches", sessionHandler.AddBatch)
	mux.HandleFunc("POST /sessions/{id}/geocode", sessionHandler.Geocode)
	mux.HandleFunc("POST /sessions/{id}/plan", sessionHandler.Plan)
	mux.HandleFunc("POST /sessions/{id}/routes/{route}/assign", sessionHandler.Assign)
	mux.HandleFunc("POST /sessions/{id}/auto-assign", sessionHandler.AutoAssign)
	mux.HandleFunc("POST /sessions/{id}/deliveries", sessionHandler.Deliver)
	mux.HandleFunc("POST /sessions/{id}/failures", sessionHandler.Fail)
	mux.HandleFunc("POST /sessions/{id}/close", sessionHandler.Close)
	mux.HandleFunc("GET /sessions/{id}/scan/{barcode}", sessionHandler.Scan)
	mux.HandleFunc("GET /sessions/{id}/separation", sessionHandler.Separation)
	mux.HandleFunc("GET /sessions/{id}/progress", sessionHandler.Progress)
	mux.HandleFunc("GET /sessions/{id}/events", sessionHandler.Events)
	mux.HandleFunc("GET /sessions/{id}/events/ws", sessionHandler.Stream)

	return requestIDMiddleware(logger, loggingMiddleware(mux))
}
