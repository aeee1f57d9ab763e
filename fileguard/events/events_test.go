package events

import (
	"errors"
	"testing"
	"time"

	"github.com/FileGuard/go-engine/fileguard/postgres/models"
)

// No database is configured in tests, so every operation must report the
// degraded mode through the sentinel instead of panicking or succeeding.
func TestOperationsWithoutDatabase(t *testing.T) {
	t.Log("\n🔍 Testing event log degraded mode...")

	err := RecordScanEvent(models.EventTypeScanStarted, models.SeverityInfo, "Scan started: a.pdf", "item-1", nil)
	if !errors.Is(err, ErrNoDatabase) {
		t.Errorf("❌ RecordScanEvent: expected ErrNoDatabase, got %v", err)
	}

	if _, _, err := GetEvents(EventFilters{Limit: 10}); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("❌ GetEvents: expected ErrNoDatabase, got %v", err)
	}

	if _, err := GetEvent("evt-123"); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("❌ GetEvent: expected ErrNoDatabase, got %v", err)
	}

	if _, err := DeleteOldEvents(24 * time.Hour); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("❌ DeleteOldEvents: expected ErrNoDatabase, got %v", err)
	}
	t.Log("✅ All operations surface the missing database as ErrNoDatabase")
}
