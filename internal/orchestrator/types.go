// Package orchestrator implements the Workflow Orchestrator (§4.K): it
// sequences the stage handlers a Stage Handler Registry (internal/
// registry) resolves for one WorkflowType, reports progress, honors
// cooperative cancellation, and aggregates failures.
//
// The stage-sequencing state machine follows an index-then-serve phase
// ordering, driven throughout by an injected progress sink rather than a
// process-global logger.
package orchestrator

import (
	"time"

	"github.com/standardbeagle/a3scan/internal/registry"
)

// State is one node of the workflow state machine (§4.K).
type State string

const (
	StateReady     State = "Ready"
	StateRunning   State = "Running"
	StateCompleted State = "Completed"
	StateFailed    State = "Failed"
	StateCancelled State = "Cancelled"
)

// Progress is one update emitted to the caller-supplied sink during a
// run. Percentage may repeat across events; Stage is human-readable
// (§4.K "Progress callback").
type Progress struct {
	State      State
	Percentage float64
	Stage      string
	Elapsed    time.Duration
	ETA        time.Duration
}

// ProgressFunc is the caller-supplied progress sink. It may be called
// from any goroutine and must tolerate partial/repeated updates.
type ProgressFunc func(Progress)

// Result is the WorkflowResult returned by Execute (§4.K).
type Result struct {
	State             State
	Duration          time.Duration
	ExtractionSummary *registry.ExtractionSummary
	ProcessingSummary *registry.ProcessingSummary
	ReportingSummary  *registry.ReportingSummary
	Errors            []error
	OutputFiles       []string
}
