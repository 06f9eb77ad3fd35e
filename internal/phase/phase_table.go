package phase

// AllowedNext returns the advisory set of phases that may follow from.
// It is exposed for tests and diagnostics; Machine.Apply itself never
// rejects an edge not in this table.
func AllowedNext(from Phase) []Phase {
	next := edges[from]
	out := make([]Phase, len(next))
	copy(out, next)
	return out
}
