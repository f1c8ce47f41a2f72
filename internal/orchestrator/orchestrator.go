package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/standardbeagle/a3scan/internal/config"
	"github.com/standardbeagle/a3scan/internal/logging"
	"github.com/standardbeagle/a3scan/internal/registry"
)

// Orchestrator sequences the stage handlers a Registry resolves for one
// Workflow, reporting progress and aggregating results (§4.K).
type Orchestrator struct {
	reg      *registry.Registry
	cfg      *config.Config
	log      *logging.Sink
	progress ProgressFunc

	current *registry.Context // set for the duration of Execute, for Cancel
}

// New constructs an Orchestrator over reg. log and progress may be nil;
// a nil progress sink simply receives no updates.
func New(reg *registry.Registry, cfg *config.Config, log *logging.Sink, progress ProgressFunc) *Orchestrator {
	if log == nil {
		log = logging.Discard()
	}
	if progress == nil {
		progress = func(Progress) {}
	}
	return &Orchestrator{reg: reg, cfg: cfg, log: log, progress: progress}
}

// Cancel requests cooperative cancellation of the in-flight run, if any.
// It is a no-op before Execute starts or after it returns.
func (o *Orchestrator) Cancel() {
	if o.current != nil {
		o.current.Cancel()
	}
}

// Execute runs wf to completion (or failure/cancellation), implementing
// the state machine and execution procedure in §4.K.
func (o *Orchestrator) Execute(wf registry.Workflow, outputDir string) (Result, error) {
	start := time.Now()
	result := Result{State: StateRunning}

	workDir, err := os.MkdirTemp("", "a3scan-scratch-*")
	if err != nil {
		return Result{State: StateFailed, Errors: []error{err}}, err
	}

	ctx := &registry.Context{
		Workflow:  wf,
		StartTime: start,
		WorkDir:   workDir,
		OutputDir: outputDir,
		Config:    o.cfg,
		Log:       o.log,
		Artifacts: make(map[string]any),
	}
	o.current = ctx
	defer func() { o.current = nil }()

	eta := time.Duration(o.cfg.Workflow.DefaultTimeoutSec) * time.Second
	o.emit(Progress{State: StateRunning, Percentage: 0, Stage: "Starting…", Elapsed: 0, ETA: eta})

	handlers, err := o.reg.AllForWorkflow(wf.Type)
	if err != nil {
		return o.fail(result, start, err)
	}

	// §4.K step 3: validate every resolved handler's precondition before
	// any stage executes.
	for _, h := range handlers {
		if err := h.Validate(wf); err != nil {
			return o.fail(result, start, fmt.Errorf("validating stage %s: %w", h.Name(), err))
		}
	}

	total := len(handlers)
	for i, h := range handlers {
		if ctx.Cancelled() {
			result.State = StateCancelled
			break
		}

		pct := float64(i) / float64(total) * 100
		o.emit(Progress{State: StateRunning, Percentage: pct, Stage: h.Name(), Elapsed: time.Since(start), ETA: eta})

		stageStart := time.Now()
		stageResult, err := h.Execute(ctx)
		stageResult.Duration = time.Since(stageStart)

		o.mergeStage(&result, stageResult)

		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("stage %s: %w", h.Name(), err))
			result.State = StateFailed
			break
		}
	}

	if result.State == StateRunning {
		result.State = StateCompleted
	}
	result.Duration = time.Since(start)

	finalPct := 100.0
	if result.State != StateCompleted {
		finalPct = pctOf(result)
	}
	o.emit(Progress{State: result.State, Percentage: finalPct, Stage: "Done", Elapsed: result.Duration, ETA: 0})

	if result.State == StateFailed && len(result.Errors) > 0 {
		return result, result.Errors[0]
	}
	return result, nil
}

func pctOf(result Result) float64 {
	if result.State == StateCompleted {
		return 100
	}
	return 0
}

func (o *Orchestrator) fail(result Result, start time.Time, err error) (Result, error) {
	result.State = StateFailed
	result.Errors = append(result.Errors, err)
	result.Duration = time.Since(start)
	o.emit(Progress{State: StateFailed, Percentage: 0, Stage: "Validation", Elapsed: result.Duration})
	return result, err
}

// mergeStage places a stage's output into the matching slot (§4.K step
// 5): Export summaries are never surfaced at the top level, only their
// output file paths.
func (o *Orchestrator) mergeStage(result *Result, sr registry.StageResult) {
	switch summary := sr.Summary.(type) {
	case *registry.ExtractionSummary:
		result.ExtractionSummary = summary
	case *registry.ProcessingSummary:
		result.ProcessingSummary = summary
	case *registry.ReportingSummary:
		result.ReportingSummary = summary
	case *registry.ExportSummary:
		// intentionally not surfaced at the top level (§4.K)
	}
	result.OutputFiles = append(result.OutputFiles, sr.OutputFiles...)
	for _, w := range sr.Warnings {
		o.log.Warnf(sr.Stage, "%s", w)
	}
}

func (o *Orchestrator) emit(p Progress) {
	o.progress(p)
}

// ScratchPath joins ctx's scratch directory with the given relative path,
// creating intermediate directories as needed (§6.C).
func ScratchPath(ctx *registry.Context, parts ...string) (string, error) {
	full := filepath.Join(append([]string{ctx.WorkDir}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	return full, nil
}

// HandlerOutputDir returns `<output_dir>/<handler-name>` (§6.C), creating
// it if necessary.
func HandlerOutputDir(ctx *registry.Context, handlerName string) (string, error) {
	dir := filepath.Join(ctx.OutputDir, handlerName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
