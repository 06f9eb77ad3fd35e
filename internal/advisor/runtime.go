package advisor

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// None designates "no advisor active."
const None Kind = ""

// EnableLookup resolves a persisted per-advisor enable flag (C7).
type EnableLookup func(Kind) bool

// Runtime is C4's lifecycle manager. It owns at most one active
// advisor at a time and serializes invocations per advisor kind.
type Runtime struct {
	logger   *zap.Logger
	llm      LLM
	advisors map[Kind]Advisor
	enabled  EnableLookup

	mu       sync.Mutex
	active   Kind
	paused   bool
	inFlight map[Kind]bool
}

func NewRuntime(logger *zap.Logger, llm LLM, advisors map[Kind]Advisor, enabled EnableLookup) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		logger:   logger,
		llm:      llm,
		advisors: advisors,
		enabled:  enabled,
		inFlight: make(map[Kind]bool),
	}
}

// Active reports the currently-running advisor kind, or None.
func (r *Runtime) Active() Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// ActivateFor transitions the runtime to target, deactivating the
// outgoing advisor (if any) before activating the incoming one
// (invariant 2: deactivation completes-before activation begins).
// While paused, deactivation still runs but activation is skipped.
func (r *Runtime) ActivateFor(ctx context.Context, target Kind) error {
	r.mu.Lock()
	current := r.active
	r.mu.Unlock()

	if current == target {
		return nil
	}

	var joined error
	if current != None {
		if adv, ok := r.advisors[current]; ok {
			if err := adv.OnDeactivate(ctx); err != nil {
				joined = multierr.Append(joined, err)
				r.logger.Warn("advisor: deactivate failed", zap.String("advisor", string(current)), zap.Error(err))
			}
		}
	}

	r.mu.Lock()
	r.active = None
	paused := r.paused
	r.mu.Unlock()

	if target == None || paused {
		return joined
	}
	if r.enabled != nil && !r.enabled(target) {
		return joined
	}

	adv, ok := r.advisors[target]
	if !ok {
		return joined
	}
	if err := adv.OnActivate(ctx); err != nil {
		joined = multierr.Append(joined, err)
		r.logger.Warn("advisor: activate failed", zap.String("advisor", string(target)), zap.Error(err))
		return joined
	}

	r.mu.Lock()
	r.active = target
	r.mu.Unlock()
	return joined
}

// DeactivateAll deactivates every advisor concurrently and joins every
// hook's error with multierr rather than dropping all but the first.
func (r *Runtime) DeactivateAll(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make([]error, len(r.advisors))
	i := 0
	for _, adv := range r.advisors {
		wg.Add(1)
		idx := i
		i++
		go func(a Advisor) {
			defer wg.Done()
			errs[idx] = a.OnDeactivate(ctx)
		}(adv)
	}
	wg.Wait()

	r.mu.Lock()
	r.active = None
	r.mu.Unlock()

	var joined error
	for _, err := range errs {
		joined = multierr.Append(joined, err)
	}
	return joined
}

// PauseAdvisors/ResumeAdvisors short-circuit activation without
// changing the phase, used on credential loss.
func (r *Runtime) PauseAdvisors() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
}

func (r *Runtime) ResumeAdvisors() {
	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()
}

// InvokeAdvisor runs one tool-loop invocation for kind. If an
// invocation is already in flight for that kind, the call is dropped
// (ok=false) rather than queued or run concurrently.
func (r *Runtime) InvokeAdvisor(ctx context.Context, kind Kind, contextText string) (result InvokeResult, ok bool) {
	r.mu.Lock()
	if r.inFlight[kind] {
		r.mu.Unlock()
		return InvokeResult{}, false
	}
	r.inFlight[kind] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inFlight, kind)
		r.mu.Unlock()
	}()

	adv, found := r.advisors[kind]
	if !found {
		return InvokeResult{Err: "advisor: unknown kind"}, true
	}
	return Invoke(ctx, r.llm, adv, contextText), true
}
