package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/FileGuard/go-engine/fileguard/stats"
)

const (
	// snapshotKeyPrefix namespaces stats snapshot keys.
	snapshotKeyPrefix = "stats:snapshot"
	// maxSnapshots is how many historical snapshots are retained.
	maxSnapshots = 10
)

// StatsSnapshot is one point-in-time copy of the aggregate stats, recorded
// after each completed scan for dashboard trend charts.
type StatsSnapshot struct {
	SnapshotID string          `json:"snapshot_id"` // YYYY-MM-DD-HHMMSS-nnnnnnnnn format
	Timestamp  time.Time       `json:"timestamp"`
	Stats      stats.Aggregate `json:"stats"`
}

// SaveStatsSnapshot stores a new snapshot and prunes old ones. Cleanup
// failures are logged, not returned.
func (p *Publisher) SaveStatsSnapshot(ctx context.Context, agg stats.Aggregate) error {
	now := time.Now().UTC()
	snapshot := StatsSnapshot{
		// Fixed-width nanoseconds keep IDs unique within a second and
		// lexicographically ordered.
		SnapshotID: fmt.Sprintf("%s-%09d", now.Format("2006-01-02-150405"), now.Nanosecond()),
		Timestamp:  now,
		Stats:      agg,
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal stats snapshot: %w", err)
	}

	key := fmt.Sprintf("%s:%s", snapshotKeyPrefix, snapshot.SnapshotID)
	if err := p.kv.SetValue(ctx, key, string(data)); err != nil {
		return err
	}

	if err := p.CleanupOldSnapshots(ctx); err != nil {
		slog.Warn("Failed to cleanup old stats snapshots", "error", err)
	}

	return nil
}

// GetSnapshot retrieves a specific snapshot by snapshot ID.
func (p *Publisher) GetSnapshot(ctx context.Context, snapshotID string) (*StatsSnapshot, error) {
	key := fmt.Sprintf("%s:%s", snapshotKeyPrefix, snapshotID)

	resp, err := p.kv.GetValue(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("snapshot not found for ID %s: %w", snapshotID, err)
	}

	var snapshot StatsSnapshot
	if err := json.Unmarshal([]byte(resp.Message.Value), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// ListSnapshots retrieves all available snapshot IDs, most recent first.
func (p *Publisher) ListSnapshots(ctx context.Context) ([]string, error) {
	keys, err := p.kv.ListKeys(ctx, snapshotKeyPrefix+":*")
	if err != nil {
		return nil, err
	}

	snapshotIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		parts := strings.Split(key, ":")
		if len(parts) >= 3 {
			// Join back in case the ID contains colons (unlikely but safe)
			snapshotIDs = append(snapshotIDs, strings.Join(parts[2:], ":"))
		}
	}

	// Timestamp-format IDs sort lexicographically; descending = most recent first
	sort.Slice(snapshotIDs, func(i, j int) bool {
		return snapshotIDs[i] > snapshotIDs[j]
	})

	return snapshotIDs, nil
}

// GetTrend retrieves up to limit most recent snapshots for trend charts.
func (p *Publisher) GetTrend(ctx context.Context, limit int) ([]*StatsSnapshot, error) {
	if limit <= 0 || limit > maxSnapshots {
		limit = maxSnapshots
	}

	availableIDs, err := p.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	if len(availableIDs) > limit {
		availableIDs = availableIDs[:limit]
	}

	snapshots := make([]*StatsSnapshot, 0, len(availableIDs))
	for _, snapshotID := range availableIDs {
		snapshot, err := p.GetSnapshot(ctx, snapshotID)
		if err != nil {
			// Skip snapshots that fail to load
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

// CleanupOldSnapshots keeps only the maxSnapshots most recent snapshots.
func (p *Publisher) CleanupOldSnapshots(ctx context.Context) error {
	snapshotIDs, err := p.ListSnapshots(ctx)
	if err != nil {
		return err
	}

	if len(snapshotIDs) <= maxSnapshots {
		return nil // Nothing to cleanup
	}

	toDelete := snapshotIDs[maxSnapshots:]
	for _, snapshotID := range toDelete {
		key := fmt.Sprintf("%s:%s", snapshotKeyPrefix, snapshotID)
		if err := p.kv.DeleteValue(ctx, key); err != nil {
			// Log but continue cleanup
			slog.Warn("Failed to delete old stats snapshot", "key", key, "error", err)
		}
	}

	return nil
}
