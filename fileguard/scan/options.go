package scan

import (
	"fmt"
	"sync"
)

// ScanDepth governs the simulated base duration and the provider effort hint.
type ScanDepth string

const (
	DepthQuick    ScanDepth = "quick"
	DepthBalanced ScanDepth = "balanced"
	DepthDeep     ScanDepth = "deep"
)

// IsValidScanDepth checks if a depth value is one of the known depths.
func IsValidScanDepth(depth string) bool {
	switch ScanDepth(depth) {
	case DepthQuick, DepthBalanced, DepthDeep:
		return true
	default:
		return false
	}
}

// ScanOptions is the configuration in effect for the next scan triggered.
// It is read at the moment a scan starts; changing it mid-scan does not
// affect an already-started item.
type ScanOptions struct {
	Depth                ScanDepth `json:"depth"`
	EnableHeuristics     bool      `json:"enable_heuristics"`
	EnableSignatures     bool      `json:"enable_signatures"`
	SensitivityThreshold float64   `json:"sensitivity_threshold"`
}

// DefaultScanOptions returns the options in effect at process start.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Depth:                DepthBalanced,
		EnableHeuristics:     true,
		EnableSignatures:     true,
		SensitivityThreshold: 50,
	}
}

// Validate checks the option values for range and enum membership.
func (o ScanOptions) Validate() error {
	if !IsValidScanDepth(string(o.Depth)) {
		return fmt.Errorf("invalid scan depth: %q", o.Depth)
	}
	if o.SensitivityThreshold < 0 || o.SensitivityThreshold > 100 {
		return fmt.Errorf("sensitivity threshold out of range: %v", o.SensitivityThreshold)
	}
	return nil
}

// OptionsStore holds the process-wide mutable scan options behind a mutex.
// The configuration surface is the single writer; the orchestrator reads the
// current value once per scan start.
type OptionsStore struct {
	mu   sync.RWMutex
	opts ScanOptions
}

// NewOptionsStore creates an options store seeded with defaults.
func NewOptionsStore() *OptionsStore {
	return &OptionsStore{opts: DefaultScanOptions()}
}

// Current returns the options in effect right now.
func (s *OptionsStore) Current() ScanOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Set replaces the current options after validation.
func (s *OptionsStore) Set(opts ScanOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	return nil
}
