package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FileGuard/go-engine/fileguard/events"
	"github.com/FileGuard/go-engine/fileguard/orchestrator"
	"github.com/FileGuard/go-engine/fileguard/postgres/models"
	"github.com/FileGuard/go-engine/fileguard/scan"
	"github.com/FileGuard/go-engine/fileguard/stats"
)

// maxUploadBytes bounds one submission batch.
const maxUploadBytes = 64 << 20 // 64 MiB

// Handlers carries the engine components the HTTP surface exposes.
type Handlers struct {
	Queue   *scan.Queue
	Orch    *orchestrator.Orchestrator
	Health  *stats.HealthModel
	Options *scan.OptionsStore
}

// QueueResponse is the rendered queue view.
type QueueResponse struct {
	Items []scan.ScanItem `json:"items"`
	Total int             `json:"total"`
}

// SubmitResponse reports the ids created for one submission batch.
type SubmitResponse struct {
	ItemIDs []string `json:"item_ids"`
	Total   int      `json:"total"`
}

// SubmitHandler accepts a multipart batch of files and enqueues them. Both
// the file-chooser and the drag-and-drop surface post here; there is no
// format distinction at this boundary.
func (h *Handlers) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("Invalid multipart request: %v", err), http.StatusBadRequest)
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		http.Error(w, "No files submitted", http.StatusBadRequest)
		return
	}

	var refs []scan.FileRef
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to read file %q: %v", header.Filename, err), http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to read file %q: %v", header.Filename, err), http.StatusBadRequest)
				return
			}
			refs = append(refs, scan.NewFileRef(header.Filename, header.Header.Get("Content-Type"), data))
		}
	}

	ids := h.Queue.Enqueue(refs)
	slog.Info("Files submitted", "count", len(ids))

	if err := events.RecordScanEvent(models.EventTypeFilesSubmitted, models.SeverityInfo,
		fmt.Sprintf("%d file(s) submitted", len(ids)), ids[0], map[string]interface{}{
			"count":    len(ids),
			"item_ids": ids,
		}); err != nil {
		slog.Debug("Event log unavailable", "event_type", models.EventTypeFilesSubmitted, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SubmitResponse{ItemIDs: ids, Total: len(ids)})
}

// QueueHandler returns the full ordered queue.
func (h *Handlers) QueueHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items := h.Queue.Items()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(QueueResponse{Items: items, Total: len(items)})
}

// ItemHandler returns a single queue item by id.
func (h *Handlers) ItemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := pathTail(r.URL.Path)
	item, ok := h.Queue.Find(id)
	if !ok {
		http.Error(w, "Scan item not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// StartScanHandler triggers a scan for the item named in the path
// (/api/v1/scans/{id}/start). The scan runs in the background; refusals from
// the orchestrator surface as 404/409.
func (h *Handlers) StartScanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api/v1/scans/{id}/start
	if len(parts) < 5 || parts[len(parts)-1] != "start" {
		http.Error(w, "Scan item ID required", http.StatusBadRequest)
		return
	}
	id := parts[len(parts)-2]

	if _, ok := h.Queue.Find(id); !ok {
		http.Error(w, "Scan item not found", http.StatusNotFound)
		return
	}
	if h.Orch.ActiveID() != "" {
		http.Error(w, "A scan is already in progress", http.StatusConflict)
		return
	}

	// The orchestrator re-checks the slot itself; this goroutine just owns
	// the item's lifetime.
	go func() {
		if err := h.Orch.StartScan(context.Background(), id); err != nil {
			slog.Warn("Scan start refused", "item", id, "error", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"item_id": id,
		"message": "Scan started",
	})
}

// StatsHandler returns the current aggregate health stats.
func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Health.Snapshot())
}

// OptionsHandler reads or replaces the scan options in effect for the next
// triggered scan.
func (h *Handlers) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.Options.Current())

	case http.MethodPut:
		var opts scan.ScanOptions
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if err := h.Options.Set(opts); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.Options.Current())

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// NotificationsHandler reads or toggles the user-facing notification flag.
func (h *Handlers) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"enabled": h.Orch.NotificationsEnabled()})

	case http.MethodPut:
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		h.Orch.SetNotificationsEnabled(req.Enabled)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"enabled": req.Enabled})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// EventsResponse is the rendered diagnostics event list.
type EventsResponse struct {
	Events []models.Event `json:"events"`
	Total  int            `json:"total"`
}

// EventsHandler returns diagnostics events, newest first. Supports
// severity/event_type/entity_id/start/end filters plus limit and offset.
func (h *Handlers) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list, total, err := events.GetEvents(parseEventFilters(r.URL.Query()))
	if err != nil {
		if errors.Is(err, events.ErrNoDatabase) {
			http.Error(w, "Event log unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to query events: %v", err), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EventsResponse{Events: list, Total: total})
}

// EventHandler returns a single diagnostics event by event id.
func (h *Handlers) EventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	event, err := events.GetEvent(pathTail(r.URL.Path))
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNoDatabase):
			http.Error(w, "Event log unavailable", http.StatusServiceUnavailable)
		case errors.Is(err, events.ErrEventNotFound):
			http.Error(w, "Event not found", http.StatusNotFound)
		default:
			http.Error(w, fmt.Sprintf("Failed to get event: %v", err), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// parseEventFilters builds event query filters from URL parameters.
// Unparseable values are ignored; GetEvents applies its own bounds.
func parseEventFilters(q url.Values) events.EventFilters {
	filters := events.EventFilters{
		Severity:  q.Get("severity"),
		EventType: q.Get("event_type"),
		EntityID:  q.Get("entity_id"),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		filters.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		filters.Offset = n
	}
	if ts, err := time.Parse(time.RFC3339, q.Get("start")); err == nil {
		filters.StartTime = &ts
	}
	if ts, err := time.Parse(time.RFC3339, q.Get("end")); err == nil {
		filters.EndTime = &ts
	}
	return filters
}

func pathTail(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return parts[len(parts)-1]
}
