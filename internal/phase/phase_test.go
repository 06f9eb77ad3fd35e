package phase

import (
	"testing"
)

func TestFromClientString(t *testing.T) {
	cases := []struct {
		raw  string
		want Phase
	}{
		{"None", Idle},
		{"Matchmaking", Lobby},
		{"ReadyCheck", Lobby},
		{"ChampSelect", ChampSelect},
		{"GameStart", Loading},
		{"InProgress", InGame},
		{"WaitingForStats", PostGame},
		{"PreEndOfGame", PostGame},
		{"EndOfGame", PostGame},
		{"SomethingUnknown", Idle},
		{"", Idle},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := FromClientString(tc.raw); got != tc.want {
				t.Fatalf("FromClientString(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestMachine_FirstTransitionIsFromIdle(t *testing.T) {
	m := New(nil)
	if m.Current() != Idle {
		t.Fatalf("expected initial phase Idle, got %q", m.Current())
	}

	tr, changed := m.Ingest("Matchmaking")
	if !changed {
		t.Fatalf("expected a transition")
	}
	if tr.From != Idle || tr.To != Lobby {
		t.Fatalf("unexpected transition: %+v", tr)
	}
}

func TestMachine_SamePhaseIsNoop(t *testing.T) {
	m := New(nil)
	m.Ingest("Matchmaking")

	_, changed := m.Ingest("ReadyCheck") // both map to Lobby
	if changed {
		t.Fatalf("expected same-phase input to be a no-op")
	}
}

func TestMachine_DisallowedEdgeStillApplies(t *testing.T) {
	m := New(nil)
	// Idle -> InProgress (InGame) is not in the advisory table.
	tr, changed := m.Ingest("InProgress")
	if !changed {
		t.Fatalf("expected disallowed edge to still apply")
	}
	if tr.To != InGame {
		t.Fatalf("expected to reach InGame, got %q", tr.To)
	}
	if m.Current() != InGame {
		t.Fatalf("machine did not apply the disallowed transition")
	}
}

func TestMachine_Reset(t *testing.T) {
	m := New(nil)
	m.Ingest("Matchmaking")

	tr, changed := m.Reset()
	if !changed {
		t.Fatalf("expected reset from non-Idle to emit a transition")
	}
	if tr.From != Lobby || tr.To != Idle {
		t.Fatalf("unexpected reset transition: %+v", tr)
	}

	_, changed = m.Reset()
	if changed {
		t.Fatalf("expected reset from Idle to be a no-op")
	}
}

// For every emitted (from,to), from == previous to, and the first
// emitted from is Idle.
func TestMachine_MonotonicityInvariant(t *testing.T) {
	m := New(nil)
	inputs := []string{"Matchmaking", "ChampSelect", "GameStart", "InProgress", "WaitingForStats", "None"}

	var transitions []Transition
	for _, raw := range inputs {
		if tr, changed := m.Ingest(raw); changed {
			transitions = append(transitions, tr)
		}
	}

	if len(transitions) == 0 {
		t.Fatalf("expected at least one transition")
	}
	if transitions[0].From != Idle {
		t.Fatalf("first transition must originate from Idle, got %q", transitions[0].From)
	}
	for i := 1; i < len(transitions); i++ {
		if transitions[i].From != transitions[i-1].To {
			t.Fatalf("transition %d.From (%q) != transition %d.To (%q)",
				i, transitions[i].From, i-1, transitions[i-1].To)
		}
	}
}

func TestAdvisorFor(t *testing.T) {
	cases := []struct {
		p    Phase
		want AdvisorKind
	}{
		{Idle, AdvisorNone},
		{Lobby, AdvisorNone},
		{ChampSelect, AdvisorDraft},
		{Loading, AdvisorNone},
		{InGame, AdvisorLive},
		{PostGame, AdvisorPost},
	}
	for _, tc := range cases {
		if got := AdvisorFor(tc.p); got != tc.want {
			t.Fatalf("AdvisorFor(%q) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestAllowedNext(t *testing.T) {
	next := AllowedNext(ChampSelect)
	if len(next) != 2 {
		t.Fatalf("expected 2 allowed transitions from ChampSelect, got %d", len(next))
	}
}
