// Package stats maintains the running aggregate health model fed by
// completed scan results. Counters never decrease and never reset except at
// process start; items that end in error are not recorded.
package stats

import (
	"math"
	"sync"

	"github.com/FileGuard/go-engine/fileguard/scan"
)

// Aggregate is the running totals exposed to the dashboard.
type Aggregate struct {
	Scanned int     `json:"scanned"`
	Threats int     `json:"threats"`
	Health  float64 `json:"health"`
}

// HealthModel owns the Aggregate and is its only writer.
type HealthModel struct {
	mu  sync.Mutex
	agg Aggregate
}

// NewHealthModel creates a model initialized to {0, 0, 100}.
func NewHealthModel() *HealthModel {
	return &HealthModel{agg: Aggregate{Health: 100}}
}

// Record consumes one completed result and recomputes the totals. Called
// exactly once per item reaching completed. Returns the updated aggregate.
func (m *HealthModel) Record(result *scan.ScanResult) Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.agg.Scanned++
	if result.ThreatLevel != scan.ThreatSafe {
		m.agg.Threats++
	}

	ratio := float64(m.agg.Threats) / float64(m.agg.Scanned)
	health := math.Max(0, 100-ratio*100)
	// One decimal place.
	m.agg.Health = math.Round(health*10) / 10

	return m.agg
}

// Snapshot returns the current totals.
func (m *HealthModel) Snapshot() Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agg
}
