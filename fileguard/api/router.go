package api

import (
	"net/http"
	"strings"
)

// SetupRoutes registers the engine's HTTP endpoints on the given mux.
func SetupRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("/api/v1/files", h.SubmitHandler)

	// /api/v1/queue and /api/v1/queue/{id}
	mux.HandleFunc("/api/v1/queue", h.QueueHandler)
	mux.HandleFunc("/api/v1/queue/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/queue"), "/") == "" {
			h.QueueHandler(w, r)
			return
		}
		h.ItemHandler(w, r)
	})

	// /api/v1/scans/{id}/start
	mux.HandleFunc("/api/v1/scans/", h.StartScanHandler)

	// /api/v1/events and /api/v1/events/{id}
	mux.HandleFunc("/api/v1/events", h.EventsHandler)
	mux.HandleFunc("/api/v1/events/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/events"), "/") == "" {
			h.EventsHandler(w, r)
			return
		}
		h.EventHandler(w, r)
	})

	mux.HandleFunc("/api/v1/stats", h.StatsHandler)
	mux.HandleFunc("/api/v1/options", h.OptionsHandler)
	mux.HandleFunc("/api/v1/notifications", h.NotificationsHandler)
}
