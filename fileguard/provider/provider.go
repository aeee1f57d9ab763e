// Package provider defines the boundary to the external analysis
// collaborator: a service that asynchronously produces a structured verdict
// for a file, plus a secondary reference lookup used to correlate non-safe
// verdicts with known vulnerabilities.
package provider

import (
	"context"
	"fmt"

	"github.com/FileGuard/go-engine/fileguard/scan"
)

// Analyzer is the capability the orchestration engine depends on. Both
// operations may suspend for an unbounded, provider-controlled duration; the
// engine places no timeout around them beyond the caller's context.
type Analyzer interface {
	// Analyze produces a verdict for the given file under the given options.
	Analyze(ctx context.Context, file scan.FileRef, opts scan.ScanOptions) (*scan.ScanResult, error)
	// LookupReferences resolves a correlation query to zero or more
	// reference URIs. Failure is equivalent to an empty result from the
	// orchestrator's perspective.
	LookupReferences(ctx context.Context, query string) ([]string, error)
}

// ProviderError wraps a failed analysis call. It is caught at the
// orchestrator boundary and resolves the item to the error terminal state.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// CorrelationError wraps a failed reference lookup. The orchestrator swallows
// it and degrades to "no references found".
type CorrelationError struct {
	Query string
	Err   error
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("correlation lookup for %q failed: %v", e.Query, e.Err)
}

func (e *CorrelationError) Unwrap() error { return e.Err }
