package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/FileGuard/go-engine/fileguard/scan"
	"github.com/FileGuard/go-engine/fileguard/stats"
	"github.com/FileGuard/go-engine/fileguard/store"
)

// MockKVStore is a simple in-memory implementation of KVStore for testing
type MockKVStore struct {
	data map[string]string
}

func NewMockKVStore() *MockKVStore {
	return &MockKVStore{
		data: make(map[string]string),
	}
}

func (m *MockKVStore) SetValue(ctx context.Context, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *MockKVStore) SetValueWithTTL(ctx context.Context, key, value string, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *MockKVStore) GetValue(ctx context.Context, key string) (store.ValkeyResponse, error) {
	value, exists := m.data[key]
	if !exists {
		return store.ValkeyResponse{}, fmt.Errorf("key '%s' not found", key)
	}
	return store.ValkeyResponse{
		Message: store.ValkeyValue{Value: value},
	}, nil
}

func (m *MockKVStore) ListKeys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)
	prefix := strings.ReplaceAll(pattern, "*", "")
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *MockKVStore) DeleteValue(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockKVStore) Close() error {
	return nil
}

func TestPublishAndGetState(t *testing.T) {
	t.Log("\n🔍 Testing dashboard state round trip...")

	mockStore := NewMockKVStore()
	pub := NewPublisher(mockStore)
	ctx := context.Background()

	eta := 15.0
	items := []scan.ScanItem{
		{ID: "item-1", File: scan.FileRef{Name: "a.pdf", Size: 100}, Status: scan.StatusScanning, Progress: 42.5, ETA: &eta},
		{ID: "item-2", File: scan.FileRef{Name: "b.exe", Size: 200}, Status: scan.StatusIdle},
	}
	agg := stats.Aggregate{Scanned: 5, Threats: 1, Health: 80.0}

	if err := pub.PublishState(ctx, items, agg); err != nil {
		t.Fatalf("❌ Failed to publish state: %v", err)
	}

	state, err := pub.GetState(ctx)
	if err != nil {
		t.Fatalf("❌ Failed to retrieve state: %v", err)
	}

	if len(state.Items) != 2 {
		t.Fatalf("❌ Expected 2 items, got %d", len(state.Items))
	}
	if state.Items[0].ID != "item-1" || state.Items[0].Progress != 42.5 {
		t.Errorf("❌ First item mismatch: %+v", state.Items[0])
	}
	if state.Items[0].ETA == nil || *state.Items[0].ETA != 15.0 {
		t.Errorf("❌ ETA lost in round trip: %v", state.Items[0].ETA)
	}
	if state.Stats != agg {
		t.Errorf("❌ Stats mismatch: expected %+v, got %+v", agg, state.Stats)
	}
	if state.UpdatedAt.IsZero() {
		t.Error("❌ UpdatedAt not set")
	}
	t.Log("✅ Published state reads back intact")
}

func TestGetStateWhenUnpublished(t *testing.T) {
	pub := NewPublisher(NewMockKVStore())
	if _, err := pub.GetState(context.Background()); err == nil {
		t.Error("❌ Expected an error before any publish")
	}
	t.Log("✅ Missing state surfaces as an error")
}

func TestSaveAndListSnapshots(t *testing.T) {
	t.Log("\n🔍 Testing stats snapshot history...")

	mockStore := NewMockKVStore()
	pub := NewPublisher(mockStore)
	ctx := context.Background()

	if err := pub.SaveStatsSnapshot(ctx, stats.Aggregate{Scanned: 3, Threats: 1, Health: 66.7}); err != nil {
		t.Fatalf("❌ Failed to save snapshot: %v", err)
	}

	ids, err := pub.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("❌ Failed to list snapshots: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("❌ Expected 1 snapshot, got %d", len(ids))
	}

	snapshot, err := pub.GetSnapshot(ctx, ids[0])
	if err != nil {
		t.Fatalf("❌ Failed to retrieve snapshot: %v", err)
	}
	if snapshot.Stats.Scanned != 3 || snapshot.Stats.Health != 66.7 {
		t.Errorf("❌ Snapshot stats mismatch: %+v", snapshot.Stats)
	}
	t.Log("✅ Snapshots save and load by ID")
}

func TestSnapshotIDsUniqueWithinOneSecond(t *testing.T) {
	t.Log("\n🔍 Testing snapshot ID uniqueness...")

	mockStore := NewMockKVStore()
	pub := NewPublisher(mockStore)
	ctx := context.Background()

	// Back-to-back saves land in the same wall-clock second.
	for i := 0; i < 3; i++ {
		if err := pub.SaveStatsSnapshot(ctx, stats.Aggregate{Scanned: i + 1, Health: 100}); err != nil {
			t.Fatalf("❌ Failed to save snapshot %d: %v", i, err)
		}
	}

	ids, err := pub.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("❌ Failed to list snapshots: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("❌ Expected 3 distinct snapshots, got %d (%v)", len(ids), ids)
	}

	// Most recent first means the last save leads.
	latest, err := pub.GetSnapshot(ctx, ids[0])
	if err != nil {
		t.Fatalf("❌ Failed to load newest snapshot: %v", err)
	}
	if latest.Stats.Scanned != 3 {
		t.Errorf("❌ Expected newest snapshot scanned=3, got %d", latest.Stats.Scanned)
	}
	t.Log("✅ Same-second saves keep separate history entries")
}

func TestSnapshotCleanupKeepsMostRecent(t *testing.T) {
	t.Log("\n🔍 Testing snapshot retention...")

	mockStore := NewMockKVStore()
	pub := NewPublisher(mockStore)
	ctx := context.Background()

	// Seed 15 snapshots with increasing timestamps.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		snap := StatsSnapshot{
			SnapshotID: ts.Format("2006-01-02-150405"),
			Timestamp:  ts,
			Stats:      stats.Aggregate{Scanned: i + 1, Health: 100},
		}
		data, err := json.Marshal(snap)
		if err != nil {
			t.Fatalf("❌ Failed to marshal seed snapshot: %v", err)
		}
		key := fmt.Sprintf("stats:snapshot:%s", snap.SnapshotID)
		if err := mockStore.SetValue(ctx, key, string(data)); err != nil {
			t.Fatalf("❌ Failed to seed snapshot: %v", err)
		}
	}

	if err := pub.CleanupOldSnapshots(ctx); err != nil {
		t.Fatalf("❌ Cleanup failed: %v", err)
	}

	ids, err := pub.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("❌ Failed to list snapshots: %v", err)
	}
	if len(ids) != 10 {
		t.Fatalf("❌ Expected 10 snapshots after cleanup, got %d", len(ids))
	}

	// The survivors must be the 10 newest, most recent first.
	want := base.Add(14 * time.Minute).Format("2006-01-02-150405")
	if ids[0] != want {
		t.Errorf("❌ Expected newest snapshot %s first, got %s", want, ids[0])
	}
	oldest := base.Add(5 * time.Minute).Format("2006-01-02-150405")
	if ids[len(ids)-1] != oldest {
		t.Errorf("❌ Expected oldest survivor %s, got %s", oldest, ids[len(ids)-1])
	}
	t.Log("✅ Cleanup retains the 10 most recent snapshots")
}

func TestGetTrendLimitsAndOrders(t *testing.T) {
	mockStore := NewMockKVStore()
	pub := NewPublisher(mockStore)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		snap := StatsSnapshot{
			SnapshotID: ts.Format("2006-01-02-150405"),
			Timestamp:  ts,
			Stats:      stats.Aggregate{Scanned: i + 1, Health: 100},
		}
		data, _ := json.Marshal(snap)
		mockStore.SetValue(ctx, fmt.Sprintf("stats:snapshot:%s", snap.SnapshotID), string(data))
	}

	trend, err := pub.GetTrend(ctx, 3)
	if err != nil {
		t.Fatalf("❌ Failed to get trend: %v", err)
	}
	if len(trend) != 3 {
		t.Fatalf("❌ Expected 3 trend points, got %d", len(trend))
	}
	if trend[0].Stats.Scanned != 5 {
		t.Errorf("❌ Expected most recent snapshot first, got scanned=%d", trend[0].Stats.Scanned)
	}
	t.Log("✅ Trend respects the limit, most recent first")
}
