// Package state exposes the engine's rendered-state boundary: the ordered
// scan queue and the aggregate stats are published to the KV store on every
// change so presentation can read them without touching engine internals.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FileGuard/go-engine/fileguard/scan"
	"github.com/FileGuard/go-engine/fileguard/stats"
	"github.com/FileGuard/go-engine/fileguard/store"
)

// DashboardKey is the KV key holding the current dashboard state.
const DashboardKey = "scan:dashboard:state"

// DashboardState is the full read-only view handed to presentation.
type DashboardState struct {
	Items     []scan.ScanItem `json:"items"`
	Stats     stats.Aggregate `json:"stats"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Publisher writes dashboard state and stats snapshots into the KV store.
type Publisher struct {
	kv store.KVStore
}

// NewPublisher creates a Publisher backed by the given KV store.
func NewPublisher(kv store.KVStore) *Publisher {
	return &Publisher{kv: kv}
}

// PublishState overwrites the current dashboard state.
func (p *Publisher) PublishState(ctx context.Context, items []scan.ScanItem, agg stats.Aggregate) error {
	state := DashboardState{
		Items:     items,
		Stats:     agg,
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard state: %w", err)
	}

	return p.kv.SetValue(ctx, DashboardKey, string(data))
}

// GetState retrieves the last published dashboard state.
func (p *Publisher) GetState(ctx context.Context) (*DashboardState, error) {
	resp, err := p.kv.GetValue(ctx, DashboardKey)
	if err != nil {
		return nil, fmt.Errorf("dashboard state not available: %w", err)
	}

	var state DashboardState
	if err := json.Unmarshal([]byte(resp.Message.Value), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dashboard state: %w", err)
	}

	return &state, nil
}
