// Package registry implements the Stage Handler Registry (§4.J): it maps
// a WorkflowType to its ordered stage list (§6.D) and dispatches each
// stage kind to the first registered Handler willing to claim it. The
// registry owns every Handler it holds; the Workflow Orchestrator only
// ever borrows one for the duration of a stage's execute() call (§9
// design note: avoid exposing boxed handlers in the core API's ownership
// graph).
//
// Handlers are selected by a capability predicate rather than a fixed
// table: each registered Handler claims the WorkflowTypes it supports,
// and the registry picks the first willing claimant per stage kind.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/standardbeagle/a3scan/internal/config"
	"github.com/standardbeagle/a3scan/internal/logging"
)

// StageKind is one of the four pipeline stages named in §1/§6.D.
type StageKind string

const (
	StageExtract StageKind = "Extract"
	StageProcess StageKind = "Process"
	StageReport  StageKind = "Report"
	StageExport  StageKind = "Export"
)

// WorkflowType is the caller-facing enumeration from §6.D.
type WorkflowType string

const (
	WorkflowExtract           WorkflowType = "Extract"
	WorkflowProcess           WorkflowType = "Process"
	WorkflowReport            WorkflowType = "Report"
	WorkflowExport            WorkflowType = "Export"
	WorkflowExtractAndProcess WorkflowType = "ExtractAndProcess"
	WorkflowProcessAndReport  WorkflowType = "ProcessAndReport"
	WorkflowComplete          WorkflowType = "Complete"
)

// stageLists is the fixed §6.D table: each WorkflowType's ordered stage
// sequence.
var stageLists = map[WorkflowType][]StageKind{
	WorkflowExtract:           {StageExtract},
	WorkflowProcess:           {StageProcess},
	WorkflowReport:            {StageReport},
	WorkflowExport:            {StageExport},
	WorkflowExtractAndProcess: {StageExtract, StageProcess},
	WorkflowProcessAndReport:  {StageProcess, StageReport},
	WorkflowComplete:          {StageExtract, StageProcess, StageReport, StageExport},
}

// StagesFor returns the ordered stage list for wt, or an error if wt is
// not one of the enumerated WorkflowTypes.
func StagesFor(wt WorkflowType) ([]StageKind, error) {
	stages, ok := stageLists[wt]
	if !ok {
		return nil, fmt.Errorf("registry: unknown workflow type %q", wt)
	}
	out := make([]StageKind, len(stages))
	copy(out, stages)
	return out, nil
}

// ContentType distinguishes which cache partition an Extract handler
// writes into (§6.D).
type ContentType string

const (
	ContentGameData ContentType = "GameData"
	ContentMission  ContentType = "Mission"
)

// Workflow is one request to the orchestrator: what kind of run, over
// what source tree, under what human-readable name.
type Workflow struct {
	Type        WorkflowType
	Name        string
	SourceDir   string
	ContentType ContentType
}

// Context is the Workflow Context (§3.9): the object handed to every
// stage handler's Execute call. It exists for the lifetime of one
// orchestrator run and carries the single cooperative cancellation flag
// every handler is expected to poll between sub-tasks (§5).
type Context struct {
	Workflow  Workflow
	StartTime time.Time
	WorkDir   string // scratch subdirectory, unique per run
	OutputDir string // caller-owned; written to, never read from
	Config    *config.Config
	Log       *logging.Sink

	// Artifacts lets one stage hand its in-memory result to the next
	// (e.g. Process's Class Store reaching Report's Validator) without
	// widening this package's imports to every domain type. The
	// orchestrator loop is single-threaded between stages (§5: "completion
	// of all work for stage N happens-before any work for stage N+1
	// starts"), so no synchronization is needed around reads that happen
	// in a later stage than the write.
	Artifacts map[string]any

	mu        sync.Mutex
	cancelled bool
}

// Cancel requests cooperative cancellation. It never blocks and never
// guarantees an in-flight stage stops immediately (§5: "mid-stage
// cancellation is best-effort").
func (c *Context) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

// Cancelled reports whether Cancel has been called. Handlers poll this
// between sub-tasks.
func (c *Context) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// ExtractionSummary is the Extract stage's contribution to a Result.
type ExtractionSummary struct {
	ArchivesScanned int
	ArchivesFailed  int
	FilesExtracted  int
}

// ProcessingSummary is the Process stage's contribution to a Result.
type ProcessingSummary struct {
	FilesParsed       int
	ClassesDiscovered int
	ParseWarnings     int
	MissionsScanned   int
}

// ReportingSummary is the Report stage's contribution to a Result.
type ReportingSummary struct {
	MissionsValidated int
	TotalUnique       int
	TotalExisting     int
	TotalMissing      int
}

// ExportSummary is the Export stage's own result. Per §4.K, Export
// summaries are not surfaced at the Result top level — only its output
// file paths are.
type ExportSummary struct {
	FilesWritten int
	Format       string
}

// StageResult is what a Handler's Execute call returns (§4.K).
type StageResult struct {
	Stage       string
	Success     bool
	Duration    time.Duration
	Summary     any // one of *ExtractionSummary, *ProcessingSummary, *ReportingSummary, *ExportSummary
	OutputFiles []string
	Warnings    []string
}

// Handler is the capability every stage implementation presents to the
// registry and orchestrator (§4.K "Handler contract").
type Handler interface {
	// Name is a stable identifier used in logs and progress text.
	Name() string
	// CanHandle is a pure predicate: does this handler claim wt's stage?
	CanHandle(wt WorkflowType) bool
	// Validate runs an optional precondition check; the default
	// implementation (embed NoopValidator) always succeeds.
	Validate(wf Workflow) error
	// Execute performs the stage's work. It must not leak goroutines
	// past its own return (§5).
	Execute(ctx *Context) (StageResult, error)
	// Cancel best-effort signals in-flight work to stop; the
	// orchestrator never waits on it.
	Cancel()
}

// NoopValidator gives a Handler a default Validate/Cancel so concrete
// handlers only need to implement Name/CanHandle/Execute, matching the
// Rust original's default trait-method pattern translated to Go
// embedding.
type NoopValidator struct{}

func (NoopValidator) Validate(Workflow) error { return nil }
func (NoopValidator) Cancel()                 {}
