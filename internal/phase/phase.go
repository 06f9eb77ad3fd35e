// Package phase implements the single authoritative match-phase state
// machine (C3). It ingests raw client phase strings, reduces them
// through a fixed mapping table, validates transitions against the
// advisory edge table, and emits a (from, to) transition for every
// change. The client is always the source of truth: a transition that
// is not in the table is logged and applied anyway.
package phase

import (
	"sync"

	"go.uber.org/zap"
)

// Phase is one of the canonical match lifecycle states.
type Phase string

const (
	Idle        Phase = "Idle"
	Lobby       Phase = "Lobby"
	ChampSelect Phase = "ChampSelect"
	Loading     Phase = "Loading"
	InGame      Phase = "InGame"
	PostGame    Phase = "PostGame"
)

// edges is the advisory phase-transition table. It is consulted for
// logging only — see Apply.
var edges = map[Phase][]Phase{
	Idle:        {Lobby},
	Lobby:       {ChampSelect, Idle},
	ChampSelect: {Loading, Lobby},
	Loading:     {InGame},
	InGame:      {PostGame},
	PostGame:    {Idle, Lobby},
}

// lcuToPhase reduces a raw gameflow-phase string from the client's
// REST/event API into a canonical Phase. Anything unrecognized maps to
// Idle.
var lcuToPhase = map[string]Phase{
	"None":            Idle,
	"Matchmaking":     Lobby,
	"ReadyCheck":      Lobby,
	"ChampSelect":     ChampSelect,
	"GameStart":       Loading,
	"InProgress":      InGame,
	"WaitingForStats": PostGame,
	"PreEndOfGame":    PostGame,
	"EndOfGame":       PostGame,
}

// FromClientString reduces a raw LCU phase string to a canonical Phase.
func FromClientString(raw string) Phase {
	if p, ok := lcuToPhase[raw]; ok {
		return p
	}
	return Idle
}

// Transition is the single event C3 emits per phase change.
type Transition struct {
	From Phase
	To   Phase
}

// Machine is the single authoritative phase variable. It is
// single-writer: only the goroutine that calls Ingest/Apply/Reset ever
// mutates current — in this core that is always the orchestrator (C6).
// Reads from other goroutines go through Current, a cheap snapshot.
type Machine struct {
	mu      sync.RWMutex
	current Phase
	logger  *zap.Logger
}

// New creates a Machine starting at Idle.
func New(logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{current: Idle, logger: logger}
}

// Current returns the current phase.
func (m *Machine) Current() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Ingest reduces a raw client phase string and applies it. It returns
// the Transition and true if a change occurred, or the zero Transition
// and false if the input phase equals current: repeated observations
// of the same phase are no-ops.
func (m *Machine) Ingest(raw string) (Transition, bool) {
	return m.Apply(FromClientString(raw))
}

// Apply validates and applies a transition to the given canonical
// phase. Disallowed edges are logged but still applied — the client's
// own report of its phase is always authoritative, never overridden by
// this package's advisory table.
func (m *Machine) Apply(to Phase) (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.current
	if to == from {
		return Transition{}, false
	}

	if !isAllowed(from, to) {
		m.logger.Debug("applying disallowed phase transition",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}

	m.current = to
	return Transition{From: from, To: to}, true
}

// Reset forces the machine back to Idle, emitting a Transition if the
// prior phase was non-Idle.
func (m *Machine) Reset() (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == Idle {
		return Transition{}, false
	}
	from := m.current
	m.current = Idle
	return Transition{From: from, To: Idle}, true
}

func isAllowed(from, to Phase) bool {
	for _, candidate := range edges[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AdvisorKind names which advisor (if any) is mapped to a phase.
type AdvisorKind string

const (
	AdvisorNone  AdvisorKind = ""
	AdvisorDraft AdvisorKind = "draft"
	AdvisorLive  AdvisorKind = "live"
	AdvisorPost  AdvisorKind = "post"
)

// advisorForPhase is the static Phase -> Advisor mapping: ChampSelect
// activates the draft advisor, InGame the live advisor, PostGame the
// post-game advisor, and every other phase has none active.
var advisorForPhase = map[Phase]AdvisorKind{
	ChampSelect: AdvisorDraft,
	InGame:      AdvisorLive,
	PostGame:    AdvisorPost,
}

// AdvisorFor returns the advisor kind mapped to a phase, or AdvisorNone.
func AdvisorFor(p Phase) AdvisorKind {
	if k, ok := advisorForPhase[p]; ok {
		return k
	}
	return AdvisorNone
}
