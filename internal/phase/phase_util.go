package phase

// OverlaySet names the overlay windows that should be visible for a
// given phase, completing the Phase -> {Advisor, OverlaySet} mapping.
type OverlaySet []string

var overlaySetForPhase = map[Phase]OverlaySet{
	ChampSelect: {"draft-board", "status-bar"},
	InGame:      {"macro-callouts", "status-bar"},
	PostGame:    {"post-game-summary", "status-bar"},
}

// OverlaySetFor returns the overlay windows that should be shown for a
// phase, or an empty set for phases with no advisor.
func OverlaySetFor(p Phase) OverlaySet {
	if set, ok := overlaySetForPhase[p]; ok {
		return set
	}
	return OverlaySet{}
}

// IsTerminalForAdvisors reports whether a phase has no mapped advisor,
// i.e. any previously active advisor must be deactivated on entry.
func IsTerminalForAdvisors(p Phase) bool {
	return AdvisorFor(p) == AdvisorNone
}
