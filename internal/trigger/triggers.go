package trigger

import (
	"fmt"
	"sort"
	"time"
)

type Urgency int

const (
	Urgent Urgency = iota
	Suggestion
	Info
)

func (u Urgency) String() string {
	switch u {
	case Urgent:
		return "urgent"
	case Suggestion:
		return "suggestion"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// TriggerResult is one fired trigger, ready either for direct overlay
// dispatch (Local) or for handing to the live advisor (LLM-worthy).
type TriggerResult struct {
	Code        string
	Urgency     Urgency
	Local       bool
	ContextText string
}

const (
	sideLaneGameTime   = 840
	winConditionTime   = 1500
	earlyPhaseUpper    = 840
	midPhaseUpper      = 1500
	cooldownWindow     = 60 * time.Second
)

// Engine runs the ordered snapshot triggers and the event triggers
// over a single-writer State and applies the 60 s dispatch cooldown.
type Engine struct {
	state         *State
	now           func() time.Time
	lastAdviceAt  time.Time
}

func NewEngine(state *State, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{state: state, now: now}
}

func (e *Engine) State() *State { return e.state }

// EvaluateSnapshot runs all 11 snapshot triggers in priority order and
// returns every one that fired.
func (e *Engine) EvaluateSnapshot(snap Snapshot) []TriggerResult {
	e.state.Ingest(snap)
	s := e.state

	lead := s.GoldLead(snap)
	s.RecordGoldLead(snap.GameTime, lead)

	var results []TriggerResult

	// 1. Throw-Guard
	if lead > 3000 && s.AllyDeathsInLast30s(snap.GameTime) >= 2 {
		results = append(results, TriggerResult{Code: "RESET_NOW", Urgency: Urgent, Local: true})
	}

	enemy := s.enemyTeam()
	enemyJungler, hasJungler := findPlayer(snap.Players, enemy, "JUNGLE")
	baronAlive := s.BaronAlive(snap.GameTime)

	// 2. Baron window
	if baronAlive && hasJungler && enemyJungler.IsDead && enemyJungler.RespawnTimer > 15 {
		results = append(results, TriggerResult{
			Code: "BARON_WINDOW", Urgency: Urgent, Local: false,
			ContextText: buildSnapshotContext(e, snap, "BARON_WINDOW"),
		})
	}

	// 3. Contest Soul
	if baronAlive && s.DrakeCount(enemy) >= 3 {
		results = append(results, TriggerResult{Code: "CONTEST_OBJECTIVE", Urgency: Urgent, Local: true})
	}

	// 4. Rush Baron
	rushBaron := baronAlive && s.DrakeCount(s.LocalTeam()) >= 3
	if rushBaron {
		results = append(results, TriggerResult{Code: "BARON_CALL", Urgency: Urgent, Local: true})
	}

	// 5. Side-lane catch
	if snap.GameTime > sideLaneGameTime {
		for _, lane := range []string{"top", "bot"} {
			if s.TurretsDown(enemy, lane) >= 2 && laneAllyDead(snap.Players, s.LocalTeam(), lane) {
				results = append(results, TriggerResult{Code: "CATCH_WAVE", Urgency: Suggestion, Local: true})
				break
			}
		}
	}

	// 6. Win condition
	enemyDead, minRespawn, hasEnemyJunglerDead := countDeadWithMinRespawn(snap.Players, enemy)
	if snap.GameTime > winConditionTime && enemyDead >= 3 && hasEnemyJunglerDead && minRespawn >= 15 {
		maxTurretsDown := maxTurretsDownInAnyLane(s, enemy)
		pushTime := pushTimeEstimate(maxTurretsDown, s.AnyInhibDown(enemy))
		if pushTime < minRespawn {
			results = append(results, TriggerResult{Code: "WIN_CONDITION", Urgency: Urgent, Local: true})
		}
	}

	// 7. Baron bait
	if s.AnyInhibDown(enemy) && baronAlive && !rushBaron {
		results = append(results, TriggerResult{Code: "BARON_BAIT", Urgency: Suggestion, Local: true})
	}

	// 8. Ace
	if allDead(snap.Players, enemy) {
		results = append(results, TriggerResult{
			Code: "ACE", Urgency: Urgent, Local: false,
			ContextText: buildSnapshotContext(e, snap, "ACE"),
		})
	}

	// 9. Gold swing
	if abs(lead-s.LastReportedLead()) >= 1000 {
		results = append(results, TriggerResult{
			Code: "GOLD_SWING", Urgency: Suggestion, Local: false,
			ContextText: buildSnapshotContext(e, snap, "GOLD_SWING"),
		})
		s.SetLastReportedLead(lead)
	}

	// 10. Long death timers
	if countDeadOver30s(snap.Players, enemy) >= 2 {
		results = append(results, TriggerResult{
			Code: "LONG_DEATH_TIMERS", Urgency: Suggestion, Local: false,
			ContextText: buildSnapshotContext(e, snap, "LONG_DEATH_TIMERS"),
		})
	}

	// 11. Power spike
	if active, ok := findPlayer(snap.Players, s.LocalTeam(), ""); ok && active.SummonerName == snap.ActivePlayerSummoner {
		for _, lvl := range []int{6, 11, 16} {
			if active.Level >= lvl && !s.PowerSpikeReported(active.SummonerName, lvl) {
				results = append(results, TriggerResult{Code: "POWER_SPIKE", Urgency: Info, Local: true})
			}
		}
	}

	return results
}

// EvaluateEvents runs the event triggers (objective kills) and updates
// the rolling structure/drake/baron state as a side effect.
func (e *Engine) EvaluateEvents(events []Event) []TriggerResult {
	s := e.state
	var results []TriggerResult

	for _, ev := range events {
		if s.SeenEvent(ev.Name, ev.ID) {
			continue
		}

		switch ev.Name {
		case "ChampionKill":
			if s.teamOf[ev.Victim] == s.LocalTeam() {
				s.SeedAllyDeath(ev.GameTime)
			}
		case "DragonKill":
			team := s.teamOf[ev.Killer]
			s.RecordDragonKill(team)
			results = append(results, TriggerResult{
				Code: "OBJECTIVE_TAKEN", Urgency: Suggestion, Local: false,
				ContextText: fmt.Sprintf("objective_taken: dragon by %s at %v", team, ev.GameTime),
			})
		case "BaronKill":
			s.RecordBaronKill(ev.GameTime)
			results = append(results, TriggerResult{
				Code: "OBJECTIVE_TAKEN", Urgency: Urgent, Local: false,
				ContextText: fmt.Sprintf("objective_taken: baron at %v", ev.GameTime),
			})
		case "HeraldKill":
			results = append(results, TriggerResult{
				Code: "OBJECTIVE_TAKEN", Urgency: Info, Local: false,
				ContextText: fmt.Sprintf("objective_taken: herald at %v", ev.GameTime),
			})
		case "TurretKilled":
			if name, ok := ev.Raw["structureName"].(string); ok {
				if team, lane, ok := ParseTurretName(name); ok {
					s.RecordTurretKill(team, lane)
				}
			}
		case "InhibKilled":
			if name, ok := ev.Raw["structureName"].(string); ok {
				if team, lane, ok := ParseInhibName(name); ok {
					s.RecordInhibKill(team, lane)
				}
			}
		case "InhibRespawned":
			if name, ok := ev.Raw["structureName"].(string); ok {
				if team, lane, ok := ParseInhibName(name); ok {
					s.RecordInhibRespawn(team, lane)
				}
			}
		}
	}

	return results
}

// DispatchOutcome is the result of one cooldown-gated dispatch
// decision.
type DispatchOutcome struct {
	Dropped bool
	Local   *TriggerResult
	LLM     []TriggerResult
}

// Dispatch sorts the combined snapshot+event trigger lists by urgency
// and, unless the 60 s cooldown is active, dispatches either the top
// local result or the full LLM-worthy subset.
func (e *Engine) Dispatch(snapshotTriggers, eventTriggers []TriggerResult) DispatchOutcome {
	combined := append(append([]TriggerResult{}, snapshotTriggers...), eventTriggers...)
	if len(combined) == 0 {
		return DispatchOutcome{}
	}

	now := e.now()
	if !e.lastAdviceAt.IsZero() && now.Sub(e.lastAdviceAt) < cooldownWindow {
		return DispatchOutcome{Dropped: true}
	}

	sort.SliceStable(combined, func(i, j int) bool { return combined[i].Urgency < combined[j].Urgency })

	top := combined[0]
	e.lastAdviceAt = now
	if top.Local {
		return DispatchOutcome{Local: &top}
	}

	var llmWorthy []TriggerResult
	for _, r := range combined {
		if !r.Local {
			llmWorthy = append(llmWorthy, r)
		}
	}
	return DispatchOutcome{LLM: llmWorthy}
}

func buildSnapshotContext(e *Engine, snap Snapshot, code string) string {
	phase := "early"
	if snap.GameTime > midPhaseUpper {
		phase = "late"
	} else if snap.GameTime > earlyPhaseUpper {
		phase = "mid"
	}
	return fmt.Sprintf("trigger=%s game_time=%v phase=%s ally_drakes=%d enemy_drakes=%d baron_up=%v",
		code, snap.GameTime, phase, e.state.DrakeCount(e.state.LocalTeam()), e.state.DrakeCount(e.state.enemyTeam()), e.state.BaronAlive(snap.GameTime))
}

func findPlayer(players []PlayerStat, team, position string) (PlayerStat, bool) {
	for _, p := range players {
		if p.Team != team {
			continue
		}
		if position != "" && p.Position != position {
			continue
		}
		return p, true
	}
	return PlayerStat{}, false
}

func laneAllyDead(players []PlayerStat, team, lane string) bool {
	pos := map[string]string{"top": "TOP", "bot": "BOTTOM"}[lane]
	for _, p := range players {
		if p.Team == team && p.Position == pos && p.IsDead {
			return true
		}
	}
	return false
}

func countDeadWithMinRespawn(players []PlayerStat, team string) (deadCount int, minRespawn float64, junglerDead bool) {
	minRespawn = -1
	for _, p := range players {
		if p.Team != team || !p.IsDead {
			continue
		}
		deadCount++
		if p.Position == "JUNGLE" {
			junglerDead = true
		}
		if minRespawn < 0 || p.RespawnTimer < minRespawn {
			minRespawn = p.RespawnTimer
		}
	}
	if minRespawn < 0 {
		minRespawn = 0
	}
	return
}

func countDeadOver30s(players []PlayerStat, team string) int {
	n := 0
	for _, p := range players {
		if p.Team == team && p.IsDead && p.RespawnTimer > 30 {
			n++
		}
	}
	return n
}

func allDead(players []PlayerStat, team string) bool {
	any := false
	for _, p := range players {
		if p.Team != team {
			continue
		}
		any = true
		if !p.IsDead {
			return false
		}
	}
	return any
}

func maxTurretsDownInAnyLane(s *State, team string) int {
	max := 0
	for _, lane := range []string{"top", "mid", "bot"} {
		if n := s.TurretsDown(team, lane); n > max {
			max = n
		}
	}
	return max
}

// pushTimeEstimate estimates seconds until a lane push becomes
// dangerous: max(0, 5 - maxTurretsDownInLane)*18 + 10, scaled by 0.7
// if any enemy inhibitor is down.
func pushTimeEstimate(maxTurretsDown int, anyInhibDown bool) float64 {
	remaining := 5 - maxTurretsDown
	if remaining < 0 {
		remaining = 0
	}
	push := float64(remaining)*18 + 10
	if anyInhibDown {
		push *= 0.7
	}
	return push
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
