package registry

import (
	"fmt"
	"sync"
)

// Registry maps each StageKind to the ordered list of Handlers willing to
// claim it, and dispatches to the first whose CanHandle returns true for
// a given WorkflowType. Registration is additive and idempotent by
// handler name (§4.J: "must be idempotent by handler name").
type Registry struct {
	mu       sync.RWMutex
	handlers map[StageKind][]Handler
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[StageKind][]Handler)}
}

// Register installs handler under kind. Re-registering a handler with a
// name already present for kind replaces it in place rather than
// duplicating it.
func (r *Registry) Register(kind StageKind, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.handlers[kind]
	for i, h := range existing {
		if h.Name() == handler.Name() {
			existing[i] = handler
			return
		}
	}
	r.handlers[kind] = append(existing, handler)
}

// HandlersFor returns every handler registered under kind, in
// registration order.
func (r *Registry) HandlersFor(kind StageKind) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, len(r.handlers[kind]))
	copy(out, r.handlers[kind])
	return out
}

// Resolve picks the first handler registered under kind whose CanHandle
// reports true for wt. It returns an error naming the stage when no
// handler claims it — the orchestrator treats this as a ValidationError
// that aborts the run before any stage executes (§4.K step 4).
func (r *Registry) Resolve(kind StageKind, wt WorkflowType) (Handler, error) {
	for _, h := range r.HandlersFor(kind) {
		if h.CanHandle(wt) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("registry: no handler registered for stage %s", kind)
}

// AllForWorkflow resolves a handler for every stage wt requires, in
// order. It fails on the first stage with no claiming handler, naming
// that stage (§8 scenario 6: a Complete workflow with no Export handler
// registered fails with one ValidationError naming the Export stage).
func (r *Registry) AllForWorkflow(wt WorkflowType) ([]Handler, error) {
	stages, err := StagesFor(wt)
	if err != nil {
		return nil, err
	}
	out := make([]Handler, 0, len(stages))
	for _, kind := range stages {
		h, err := r.Resolve(kind, wt)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
