package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/a3scan/internal/config"
	"github.com/standardbeagle/a3scan/internal/registry"
)

type stepHandler struct {
	registry.NoopValidator
	name    string
	claims  registry.WorkflowType
	summary any
	err     error
}

func (s *stepHandler) Name() string { return s.name }
func (s *stepHandler) CanHandle(wt registry.WorkflowType) bool { return wt == s.claims }
func (s *stepHandler) Execute(ctx *registry.Context) (registry.StageResult, error) {
	if s.err != nil {
		return registry.StageResult{Stage: s.name}, s.err
	}
	return registry.StageResult{Stage: s.name, Success: true, Summary: s.summary}, nil
}

func newTestRegistry(wt registry.WorkflowType, extractErr, processErr error) *registry.Registry {
	reg := registry.New()
	reg.Register(registry.StageExtract, &stepHandler{name: "Extract", claims: wt, summary: &registry.ExtractionSummary{ArchivesScanned: 2}, err: extractErr})
	reg.Register(registry.StageProcess, &stepHandler{name: "Process", claims: wt, summary: &registry.ProcessingSummary{FilesParsed: 5}, err: processErr})
	reg.Register(registry.StageReport, &stepHandler{name: "Report", claims: wt, summary: &registry.ReportingSummary{TotalUnique: 3}})
	reg.Register(registry.StageExport, &stepHandler{name: "Export", claims: wt, summary: &registry.ExportSummary{FilesWritten: 1}})
	return reg
}

func TestOrchestrator_CompleteWorkflowRunsEveryStageInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := newTestRegistry(registry.WorkflowComplete, nil, nil)
	cfg := config.Default(t.TempDir())

	var stages []string
	orch := New(reg, cfg, nil, func(p Progress) { stages = append(stages, p.Stage) })

	result, err := orch.Execute(registry.Workflow{Type: registry.WorkflowComplete, SourceDir: t.TempDir()}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	require.NotNil(t, result.ExtractionSummary)
	assert.Equal(t, 2, result.ExtractionSummary.ArchivesScanned)
	require.NotNil(t, result.ProcessingSummary)
	require.NotNil(t, result.ReportingSummary)
	// Export summaries are never surfaced at the top level (§4.K).
	assert.Contains(t, stages, "Extract")
	assert.Contains(t, stages, "Export")
	assert.Equal(t, []string{"Starting…", "Extract", "Process", "Report", "Export", "Done"}, stages)
}

func TestOrchestrator_StageFailureStopsTheRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := newTestRegistry(registry.WorkflowComplete, nil, errors.New("parse exploded"))
	cfg := config.Default(t.TempDir())
	orch := New(reg, cfg, nil, nil)

	result, err := orch.Execute(registry.Workflow{Type: registry.WorkflowComplete, SourceDir: t.TempDir()}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Contains(t, err.Error(), "Process")
	// Report and Export never ran.
	assert.Nil(t, result.ReportingSummary)
}

func TestOrchestrator_MissingHandlerFailsBeforeAnyStageRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := registry.New()
	reg.Register(registry.StageExtract, &stepHandler{name: "Extract", claims: registry.WorkflowComplete})
	reg.Register(registry.StageProcess, &stepHandler{name: "Process", claims: registry.WorkflowComplete})
	reg.Register(registry.StageReport, &stepHandler{name: "Report", claims: registry.WorkflowComplete})
	// No Export handler registered (§8 scenario 6).

	cfg := config.Default(t.TempDir())
	orch := New(reg, cfg, nil, nil)

	result, err := orch.Execute(registry.Workflow{Type: registry.WorkflowComplete, SourceDir: t.TempDir()}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Contains(t, err.Error(), "Export")
	assert.Nil(t, result.ExtractionSummary)
}

func TestOrchestrator_CancelBeforeNextStageStopsTheRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := registry.New()
	var orch *Orchestrator
	reg.Register(registry.StageExtract, cancelingHandler{orch: &orch})
	reg.Register(registry.StageProcess, &stepHandler{name: "Process", claims: registry.WorkflowExtractAndProcess})

	cfg := config.Default(t.TempDir())
	orch = New(reg, cfg, nil, nil)

	result, err := orch.Execute(registry.Workflow{Type: registry.WorkflowExtractAndProcess, SourceDir: t.TempDir()}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, result.State)
}

type cancelingHandler struct {
	registry.NoopValidator
	orch **Orchestrator
}

func (cancelingHandler) Name() string { return "Extract" }
func (cancelingHandler) CanHandle(wt registry.WorkflowType) bool {
	return wt == registry.WorkflowExtractAndProcess
}
func (h cancelingHandler) Execute(ctx *registry.Context) (registry.StageResult, error) {
	(*h.orch).Cancel()
	return registry.StageResult{Stage: "Extract", Success: true}, nil
}
