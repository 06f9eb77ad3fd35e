// Package orchestrator implements the single actor (C6) that owns one
// running match: it relays C1's session events into C3's phase
// machine and C4's advisor runtime, feeds C1's telemetry into C5's
// trigger engine, and routes C5's dispatch output to the overlay sink
// or the live advisor. One inbox channel, one goroutine owning all of
// the match state. The orchestrator holds no session value itself; it
// consumes the events a session.Manager publishes for whichever client
// is currently attached.
package orchestrator

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/willckim/rift-architect/internal/advisor"
	"github.com/willckim/rift-architect/internal/overlay"
	"github.com/willckim/rift-architect/internal/phase"
	"github.com/willckim/rift-architect/internal/scheduler"
	"github.com/willckim/rift-architect/internal/session"
	"github.com/willckim/rift-architect/internal/trigger"
)

// Msg is the sealed inbox message type. Concrete cases mirror the
// session.Event cases (except TelemetryAvailability, which translate
// drops), plus the two control messages C8's HTTP surface needs
// (ReloadKey, Shutdown).
type Msg interface{ isOrchestratorMsg() }

type ClientConnected struct{ Credentials session.Credentials }
type ClientDisconnected struct{}
type PhaseObserved struct{ Raw string }
type Snapshot struct{ Data json.RawMessage }
type NewEvents struct{ Events []session.TelemetryEvent }
type ReloadKey struct{ Credential scheduler.Credential }
type Shutdown struct{}

// advisorInvokeDone carries a live-advisor invocation result back onto
// the inbox once the goroutine dispatching it finishes. It never
// originates outside this package.
type advisorInvokeDone struct {
	result advisor.InvokeResult
	ok     bool
}

func (ClientConnected) isOrchestratorMsg()    {}
func (ClientDisconnected) isOrchestratorMsg() {}
func (PhaseObserved) isOrchestratorMsg()      {}
func (Snapshot) isOrchestratorMsg()           {}
func (NewEvents) isOrchestratorMsg()          {}
func (ReloadKey) isOrchestratorMsg()          {}
func (Shutdown) isOrchestratorMsg()           {}
func (advisorInvokeDone) isOrchestratorMsg()  {}

// StatusSnapshot is a cheap read for C8's GET /control/status; building
// it briefly takes the phase machine's, advisor runtime's and
// scheduler's own locks.
type StatusSnapshot struct {
	Phase         phase.Phase
	ActiveAdvisor advisor.Kind
	SchedulerState scheduler.State
}

// Orchestrator is the single actor wiring C1 through C5.
type Orchestrator struct {
	inbox chan Msg

	logger    *zap.Logger
	phase     *phase.Machine
	advisors  *advisor.Runtime
	triggers  *trigger.Engine
	scheduler *scheduler.Scheduler
	sink      overlay.Sink

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds an Orchestrator. advisors must already be constructed
// with phase-agnostic advisor.Advisor implementations keyed by Kind.
// Each advisor's REST fetcher closes over session.Manager.RESTCapability
// so it always reads whatever client is currently attached, rather
// than the orchestrator threading a capability handle through on every
// reconnect.
func New(parent context.Context, logger *zap.Logger, ph *phase.Machine, adv *advisor.Runtime, trig *trigger.Engine, sched *scheduler.Scheduler, sink overlay.Sink) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	o := &Orchestrator{
		inbox:     make(chan Msg, 64),
		logger:    logger,
		phase:     ph,
		advisors:  adv,
		triggers:  trig,
		scheduler: sched,
		sink:      sink,
		ctx:       ctx,
		cancel:    cancel,
	}
	go o.loop()
	return o
}

func (o *Orchestrator) Inbox() chan<- Msg { return o.inbox }

// Drive subscribes the orchestrator to a session.Manager's event
// stream, translating each session.Event into the matching Msg. It
// blocks until the manager's channel closes or ctx is cancelled.
func (o *Orchestrator) Drive(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.translate(ev)
		}
	}
}

func (o *Orchestrator) translate(ev session.Event) {
	switch e := ev.(type) {
	case session.ClientConnected:
		o.inbox <- ClientConnected{Credentials: e.Credentials}
	case session.ClientDisconnected:
		o.inbox <- ClientDisconnected{}
	case session.PhaseObserved:
		o.inbox <- PhaseObserved{Raw: e.Raw}
	case session.TelemetrySnapshot:
		o.inbox <- Snapshot{Data: e.Data}
	case session.TelemetryEvents:
		o.inbox <- NewEvents{Events: e.Events}
	}
}

func (o *Orchestrator) loop() {
	for {
		select {
		case <-o.ctx.Done():
			return
		case m := <-o.inbox:
			switch msg := m.(type) {
			case ClientConnected:
				o.logger.Info("orchestrator: client connected")

			case ClientDisconnected:
				o.logger.Info("orchestrator: client disconnected")
				if err := o.advisors.DeactivateAll(o.ctx); err != nil {
					o.logger.Warn("orchestrator: advisor deactivation errors", zap.Error(err))
				}
				o.phase.Reset()

			case PhaseObserved:
				transition, changed := o.phase.Ingest(msg.Raw)
				if !changed {
					break
				}
				o.logger.Info("orchestrator: phase transition",
					zap.String("from", string(transition.From)),
					zap.String("to", string(transition.To)),
				)
				o.onPhaseTransition(transition)

			case Snapshot:
				o.onSnapshot(msg.Data)

			case NewEvents:
				o.onTelemetryEvents(msg.Events)

			case ReloadKey:
				o.scheduler.ReloadKey(msg.Credential)

			case advisorInvokeDone:
				o.onAdvisorInvokeDone(msg)

			case Shutdown:
				if err := o.advisors.DeactivateAll(o.ctx); err != nil {
					o.logger.Warn("orchestrator: shutdown deactivation errors", zap.Error(err))
				}
				o.cancel()
				return
			}
		}
	}
}

func (o *Orchestrator) onPhaseTransition(t phase.Transition) {
	target := advisorKindFor(phase.AdvisorFor(t.To))
	if err := o.advisors.ActivateFor(o.ctx, target); err != nil {
		o.logger.Warn("orchestrator: advisor activation error", zap.Error(err))
	}
}

func advisorKindFor(k phase.AdvisorKind) advisor.Kind {
	switch k {
	case phase.AdvisorDraft:
		return advisor.Draft
	case phase.AdvisorLive:
		return advisor.Live
	case phase.AdvisorPost:
		return advisor.Post
	default:
		return advisor.None
	}
}

func (o *Orchestrator) onSnapshot(raw json.RawMessage) {
	snap, err := trigger.DecodeSnapshot(raw)
	if err != nil {
		o.logger.Debug("orchestrator: snapshot decode failed, dropping", zap.Error(err))
		return
	}
	results := o.triggers.EvaluateSnapshot(snap)
	o.dispatch(results, nil)
}

func (o *Orchestrator) onTelemetryEvents(events []session.TelemetryEvent) {
	decoded := make([]trigger.Event, 0, len(events))
	for _, raw := range events {
		ev, err := trigger.DecodeEvent(raw.Raw)
		if err != nil {
			o.logger.Debug("orchestrator: event decode failed, dropping", zap.Error(err))
			continue
		}
		decoded = append(decoded, ev)
	}
	results := o.triggers.EvaluateEvents(decoded)
	o.dispatch(nil, results)
}

func (o *Orchestrator) dispatch(snapshotResults, eventResults []trigger.TriggerResult) {
	outcome := o.triggers.Dispatch(snapshotResults, eventResults)
	if outcome.Dropped {
		return
	}
	if outcome.Local != nil {
		if o.sink != nil {
			if err := o.sink.Send("advice", outcome.Local); err != nil {
				o.logger.Debug("orchestrator: overlay send failed", zap.Error(err))
			}
		}
		return
	}
	if len(outcome.LLM) == 0 {
		return
	}
	contextText := outcome.LLM[0].ContextText
	for _, r := range outcome.LLM[1:] {
		contextText += "\n" + r.ContextText
	}
	// The bounded tool-loop behind InvokeAdvisor can run for minutes
	// (up to 10 rounds x 3 attempts x 30s); it must never run on this
	// goroutine, or ClientDisconnected and every later Snapshot/
	// NewEvents message would queue behind it. Run it off-actor and
	// deliver the result back through the inbox instead.
	go func() {
		result, ok := o.advisors.InvokeAdvisor(o.ctx, advisor.Live, contextText)
		select {
		case o.inbox <- advisorInvokeDone{result: result, ok: ok}:
		case <-o.ctx.Done():
		}
	}()
}

func (o *Orchestrator) onAdvisorInvokeDone(msg advisorInvokeDone) {
	if !msg.ok {
		return
	}
	if msg.result.Err != "" {
		o.logger.Warn("orchestrator: live advisor invocation failed", zap.String("error", msg.result.Err))
		return
	}
	if o.sink != nil {
		if err := o.sink.Send("advice", msg.result.Text); err != nil {
			o.logger.Debug("orchestrator: overlay send failed", zap.Error(err))
		}
	}
}

// Status returns a cheap snapshot for internal/test use.
func (o *Orchestrator) Status() StatusSnapshot {
	return StatusSnapshot{
		Phase:          o.phase.Current(),
		ActiveAdvisor:  o.advisors.Active(),
		SchedulerState: o.scheduler.StatusSnapshot().State,
	}
}

// OverlayStatus and ReloadCredential satisfy overlay.Controller, the
// interface C8's HTTP control surface is written against. They live
// here rather than on overlay.Status itself so overlay never has to
// import this package back.
func (o *Orchestrator) OverlayStatus() overlay.Status {
	s := o.Status()
	return overlay.Status{
		Phase:          string(s.Phase),
		ActiveAdvisor:  string(s.ActiveAdvisor),
		SchedulerState: s.SchedulerState.String(),
	}
}

func (o *Orchestrator) ReloadCredential(region, secret string) {
	o.inbox <- ReloadKey{Credential: scheduler.Credential{Region: region, Secret: secret}}
}
