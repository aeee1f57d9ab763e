// Package orchestrator coordinates the scan queue, progress simulator,
// analysis provider and aggregate health model for one item at a time. It is
// the authority for the single-concurrency invariant: at most one item may be
// scanning or analyzing at any instant, regardless of what the UI allows.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FileGuard/go-engine/fileguard/events"
	"github.com/FileGuard/go-engine/fileguard/notify"
	"github.com/FileGuard/go-engine/fileguard/postgres/models"
	"github.com/FileGuard/go-engine/fileguard/provider"
	"github.com/FileGuard/go-engine/fileguard/scan"
	"github.com/FileGuard/go-engine/fileguard/stats"
)

// Refused operations. These are rejected synchronously and leave all state
// untouched.
var (
	ErrItemNotFound = errors.New("scan item not found")
	ErrScanActive   = errors.New("a scan is already in progress")
	ErrItemFinished = errors.New("scan item already finished")
)

// largeFileBytes is the size above which the initial ETA doubles.
const largeFileBytes = 2 * 1024 * 1024

// Config carries the orchestrator's timing knobs. Tests shrink these.
type Config struct {
	// TickPeriod is the progress simulator period.
	TickPeriod time.Duration
	// PreProcessDelay models provider warm-up latency before the item
	// moves from scanning to analyzing.
	PreProcessDelay time.Duration
}

// DefaultConfig returns the reference timing: 500ms ticks, 2s warm-up.
func DefaultConfig() Config {
	return Config{
		TickPeriod:      500 * time.Millisecond,
		PreProcessDelay: 2 * time.Second,
	}
}

// StatePublisher pushes the rendered state out on every change. The state
// package's Publisher satisfies this.
type StatePublisher interface {
	PublishState(ctx context.Context, items []scan.ScanItem, agg stats.Aggregate) error
	SaveStatsSnapshot(ctx context.Context, agg stats.Aggregate) error
}

// Orchestrator owns the active-scan slot and drives items through their
// lifecycle.
type Orchestrator struct {
	queue    *scan.Queue
	analyzer provider.Analyzer
	health   *stats.HealthModel
	options  *scan.OptionsStore
	cfg      Config

	notifier  notify.Notifier // optional
	publisher StatePublisher  // optional

	notifications atomic.Bool

	mu       sync.Mutex
	activeID string
}

// New creates an orchestrator. Notifications start enabled; notifier and
// publisher are optional and attached with the setters.
func New(queue *scan.Queue, analyzer provider.Analyzer, health *stats.HealthModel, options *scan.OptionsStore, cfg Config) *Orchestrator {
	o := &Orchestrator{
		queue:    queue,
		analyzer: analyzer,
		health:   health,
		options:  options,
		cfg:      cfg,
	}
	o.notifications.Store(true)
	return o
}

// SetNotifier attaches the notification sink.
func (o *Orchestrator) SetNotifier(n notify.Notifier) { o.notifier = n }

// SetPublisher attaches the rendered-state publisher.
func (o *Orchestrator) SetPublisher(p StatePublisher) { o.publisher = p }

// SetNotificationsEnabled toggles the user-facing notification flag.
func (o *Orchestrator) SetNotificationsEnabled(enabled bool) {
	o.notifications.Store(enabled)
}

// NotificationsEnabled reports the current notification flag.
func (o *Orchestrator) NotificationsEnabled() bool {
	return o.notifications.Load()
}

// ActiveID returns the id of the item currently holding the scan slot, or ""
// when the slot is free.
func (o *Orchestrator) ActiveID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeID
}

// StartScan runs one item through its full lifecycle and blocks until the
// item reaches a terminal state. Provider failures resolve to the error
// terminal state and are not returned; only refused operations produce an
// error. There is no way to abort an in-flight item.
func (o *Orchestrator) StartScan(ctx context.Context, id string) error {
	item, ok := o.queue.Find(id)
	if !ok {
		return ErrItemNotFound
	}
	if item.Status.Active() {
		return ErrScanActive
	}
	if item.Status.Terminal() {
		return ErrItemFinished
	}

	o.mu.Lock()
	if o.activeID != "" {
		o.mu.Unlock()
		return ErrScanActive
	}
	o.activeID = id
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.activeID = ""
		o.mu.Unlock()
	}()

	o.run(ctx, item)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, item scan.ScanItem) {
	// Options are read once, at scan start; mid-scan changes apply to the
	// next scan only.
	opts := o.options.Current()
	eta := initialETA(opts.Depth, item.File.Size)

	scanning := scan.StatusScanning
	zero := 0.0
	o.queue.UpdateItem(item.ID, scan.ItemPatch{
		Status:   &scanning,
		Progress: &zero,
		ETA:      &eta,
	})
	o.recordEvent(models.EventTypeScanStarted, models.SeverityInfo,
		fmt.Sprintf("Scan started: %s", item.File.Name), item.ID, map[string]interface{}{
			"file_name":   item.File.Name,
			"file_size":   item.File.Size,
			"scan_depth":  string(opts.Depth),
			"initial_eta": eta,
		})
	o.publishState(ctx)

	sim := startSimulator(o.queue, item.ID, eta, o.cfg.TickPeriod, func() {
		o.publishState(ctx)
	})
	// Stop is idempotent; the deferred call covers every exit path.
	defer sim.Stop()

	// Provider warm-up window before real analysis begins.
	select {
	case <-ctx.Done():
		o.fail(ctx, item, sim, ctx.Err())
		return
	case <-time.After(o.cfg.PreProcessDelay):
	}

	analyzing := scan.StatusAnalyzing
	o.queue.UpdateItem(item.ID, scan.ItemPatch{Status: &analyzing})
	o.publishState(ctx)

	result, err := o.analyzer.Analyze(ctx, item.File, opts)
	if err != nil {
		o.fail(ctx, item, sim, err)
		return
	}

	o.enrich(ctx, item, result)

	sim.Stop()

	completed := scan.StatusCompleted
	done := 100.0
	o.queue.UpdateItem(item.ID, scan.ItemPatch{
		Status:   &completed,
		Progress: &done,
		ETA:      &zero,
		Result:   result,
	})

	agg := o.health.Record(result)

	o.recordEvent(models.EventTypeScanCompleted, models.SeverityInfo,
		fmt.Sprintf("Scan completed: %s", result.FileName), item.ID, map[string]interface{}{
			"threat_level": string(result.ThreatLevel),
			"confidence":   result.ConfidenceScore,
			"cve_matches":  len(result.CVEMatches),
		})
	if result.ThreatLevel != scan.ThreatSafe {
		o.recordEvent(models.EventTypeThreatDetected, models.SeverityWarning,
			fmt.Sprintf("Threat detected in %s", result.FileName), item.ID, map[string]interface{}{
				"threat_level":    string(result.ThreatLevel),
				"vulnerabilities": len(result.Vulnerabilities),
			})
	}

	o.publishState(ctx)
	if o.publisher != nil {
		if err := o.publisher.SaveStatsSnapshot(ctx, agg); err != nil {
			slog.Warn("Failed to save stats snapshot", "error", err)
		}
	}

	o.sendNotification(ctx, fmt.Sprintf("Scan complete: %s (%s)", result.FileName, result.ThreatLevel))
	slog.Info("Scan completed", "item", item.ID, "file", result.FileName, "threat_level", result.ThreatLevel)
}

// enrich runs the correlation lookup for non-safe verdicts and attaches the
// returned links. A failed or empty lookup leaves the result untouched; the
// primary verdict is never discarded because enrichment failed.
func (o *Orchestrator) enrich(ctx context.Context, item scan.ScanItem, result *scan.ScanResult) {
	if result.ThreatLevel == scan.ThreatSafe {
		return
	}

	query := correlationQuery(result)
	links, err := o.analyzer.LookupReferences(ctx, query)
	if err != nil {
		slog.Warn("Correlation lookup failed, continuing without references",
			"item", item.ID, "query", query, "error", err)
		return
	}
	if len(links) > 0 {
		result.CVEMatches = links
	}
}

// fail resolves the item to the error terminal state. The error is logged,
// not propagated; the rest of the queue is unaffected.
func (o *Orchestrator) fail(ctx context.Context, item scan.ScanItem, sim *simulator, cause error) {
	sim.Stop()

	errStatus := scan.StatusError
	zero := 0.0
	o.queue.UpdateItem(item.ID, scan.ItemPatch{
		Status:   &errStatus,
		Progress: &zero,
		ETA:      &zero,
	})

	o.recordEvent(models.EventTypeScanFailed, models.SeverityError,
		fmt.Sprintf("Scan failed: %s", item.File.Name), item.ID, map[string]interface{}{
			"file_name": item.File.Name,
			"error":     cause.Error(),
		})
	o.publishState(ctx)
	o.sendNotification(ctx, fmt.Sprintf("Scan failed: %s", item.File.Name))

	slog.Error("Scan failed", "item", item.ID, "file", item.File.Name, "error", cause)
}

func (o *Orchestrator) publishState(ctx context.Context) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishState(ctx, o.queue.Items(), o.health.Snapshot()); err != nil {
		slog.Warn("Failed to publish dashboard state", "error", err)
	}
}

func (o *Orchestrator) sendNotification(ctx context.Context, message string) {
	if o.notifier == nil || !o.notifications.Load() {
		return
	}
	if err := o.notifier.Notify(ctx, message); err != nil {
		slog.Warn("Failed to deliver notification", "error", err)
	}
}

// recordEvent writes a diagnostics event, best effort. The event log is
// optional infrastructure, so failures only show up at debug level.
func (o *Orchestrator) recordEvent(eventType, severity, title, itemID string, metadata map[string]interface{}) {
	if err := events.RecordScanEvent(eventType, severity, title, itemID, metadata); err != nil {
		slog.Debug("Event log unavailable", "event_type", eventType, "error", err)
	}
}

// correlationQuery derives the reference-lookup query from a verdict: the
// first reported vulnerability when present, otherwise a synthesized
// "<fileName> vulnerabilities" search.
func correlationQuery(result *scan.ScanResult) string {
	if len(result.Vulnerabilities) > 0 {
		return result.Vulnerabilities[0]
	}
	return fmt.Sprintf("%s vulnerabilities", result.FileName)
}

// initialETA selects the base duration for the configured depth and doubles
// it for files above 2 MiB.
func initialETA(depth scan.ScanDepth, size int64) float64 {
	var base float64
	switch depth {
	case scan.DepthQuick:
		base = 5
	case scan.DepthDeep:
		base = 45
	default:
		base = 15
	}
	if size > largeFileBytes {
		base *= 2
	}
	return base
}
