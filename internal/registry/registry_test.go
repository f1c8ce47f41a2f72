package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	NoopValidator
	name    string
	handles map[WorkflowType]bool
}

func (s *stubHandler) Name() string { return s.name }
func (s *stubHandler) CanHandle(wt WorkflowType) bool {
	return s.handles[wt]
}
func (s *stubHandler) Execute(ctx *Context) (StageResult, error) {
	return StageResult{Stage: s.name, Success: true}, nil
}

func TestStagesFor_MatchesSpecTable(t *testing.T) {
	cases := map[WorkflowType][]StageKind{
		WorkflowExtract:           {StageExtract},
		WorkflowProcess:           {StageProcess},
		WorkflowReport:            {StageReport},
		WorkflowExport:            {StageExport},
		WorkflowExtractAndProcess: {StageExtract, StageProcess},
		WorkflowProcessAndReport:  {StageProcess, StageReport},
		WorkflowComplete:          {StageExtract, StageProcess, StageReport, StageExport},
	}
	for wt, want := range cases {
		got, err := StagesFor(wt)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStagesFor_UnknownWorkflowTypeErrors(t *testing.T) {
	_, err := StagesFor(WorkflowType("Bogus"))
	assert.Error(t, err)
}

func TestRegistry_ResolvePicksFirstClaimingHandler(t *testing.T) {
	r := New()
	h1 := &stubHandler{name: "h1", handles: map[WorkflowType]bool{}}
	h2 := &stubHandler{name: "h2", handles: map[WorkflowType]bool{WorkflowExtract: true}}
	r.Register(StageExtract, h1)
	r.Register(StageExtract, h2)

	got, err := r.Resolve(StageExtract, WorkflowExtract)
	require.NoError(t, err)
	assert.Equal(t, "h2", got.Name())
}

func TestRegistry_ResolveErrorsWhenNoHandlerClaims(t *testing.T) {
	r := New()
	_, err := r.Resolve(StageExport, WorkflowExport)
	assert.Error(t, err)
}

func TestRegistry_RegisterIsIdempotentByName(t *testing.T) {
	r := New()
	h1 := &stubHandler{name: "h", handles: map[WorkflowType]bool{WorkflowExtract: true}}
	h2 := &stubHandler{name: "h", handles: map[WorkflowType]bool{WorkflowExtract: true}}
	r.Register(StageExtract, h1)
	r.Register(StageExtract, h2)

	assert.Len(t, r.HandlersFor(StageExtract), 1)
}

func TestRegistry_AllForWorkflowFailsNamingMissingStage(t *testing.T) {
	r := New()
	r.Register(StageExtract, &stubHandler{name: "e", handles: map[WorkflowType]bool{WorkflowComplete: true}})
	r.Register(StageProcess, &stubHandler{name: "p", handles: map[WorkflowType]bool{WorkflowComplete: true}})
	r.Register(StageReport, &stubHandler{name: "r", handles: map[WorkflowType]bool{WorkflowComplete: true}})
	// No Export handler registered.

	_, err := r.AllForWorkflow(WorkflowComplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Export")
}
