package trigger

import (
	"fmt"
	"strings"
)

const (
	Order = "ORDER"
	Chaos = "CHAOS"
)

// PlayerStat is one roster entry from a live telemetry snapshot.
// IsDead/RespawnTimer/Position mirror the client's own schema directly
// — no respawn-duration formula is derived here.
type PlayerStat struct {
	SummonerName string
	Team         string
	Position     string
	Level        int
	Kills        int
	Deaths       int
	Assists      int
	CreepScore   int
	IsDead       bool
	RespawnTimer float64
}

// Snapshot is the decoded full-telemetry poll (10 s cadence).
type Snapshot struct {
	GameTime             float64
	ActivePlayerSummoner string
	Players              []PlayerStat
}

// Event is one decoded live-telemetry event (5 s cadence feed).
type Event struct {
	ID        int
	Name      string
	GameTime  float64
	Victim    string
	Killer    string
	Assisters []string
	Raw       map[string]any
}

type goldPoint struct {
	gameTime float64
	lead     float64
}

// State is C5's rolling aggregate, single-writer, mutated only from
// snapshot/event callbacks serialized with respect to each other.
type State struct {
	localTeam    string
	localLocked  bool
	teamOf       map[string]string
	goldHistory  []goldPoint
	allyDeaths   []float64 // game-time of ally-victim ChampionKill events
	drakeCount   map[string]int
	baronNextUp  float64 // game-time baron next becomes/stays alive from
	turretsDown  map[string]map[string]int // team -> lane -> count
	inhibsDown   map[string]map[string]bool
	lastLead     float64
	seenEvents   map[string]bool
	lastLevelTag map[string]int // summoner -> highest power-spike level already reported
}

func NewState() *State {
	return &State{
		teamOf:       make(map[string]string),
		drakeCount:   map[string]int{Order: 0, Chaos: 0},
		baronNextUp:  1200,
		turretsDown:  map[string]map[string]int{Order: {}, Chaos: {}},
		inhibsDown:   map[string]map[string]bool{Order: {}, Chaos: {}},
		seenEvents:   make(map[string]bool),
		lastLevelTag: make(map[string]int),
	}
}

// Ingest updates the team map and, on the first snapshot, locks the
// local team from the active player's entry.
func (s *State) Ingest(snap Snapshot) {
	for _, p := range snap.Players {
		s.teamOf[p.SummonerName] = p.Team
		if !s.localLocked && p.SummonerName == snap.ActivePlayerSummoner {
			s.localTeam = p.Team
			s.localLocked = true
		}
	}
	s.pruneAllyDeaths(snap.GameTime)
}

func (s *State) LocalTeam() string { return s.localTeam }

func (s *State) enemyTeam() string {
	if s.localTeam == Order {
		return Chaos
	}
	return Order
}

// GoldLead estimates per-team gold from scoreboard stats only
// (creep-score*20 + kills*300 + assists*150) and returns ally-enemy.
func (s *State) GoldLead(snap Snapshot) float64 {
	var ally, enemy float64
	for _, p := range snap.Players {
		g := float64(p.CreepScore)*20 + float64(p.Kills)*300 + float64(p.Assists)*150
		if p.Team == s.localTeam {
			ally += g
		} else {
			enemy += g
		}
	}
	return ally - enemy
}

func (s *State) RecordGoldLead(gameTime, lead float64) {
	s.goldHistory = append(s.goldHistory, goldPoint{gameTime: gameTime, lead: lead})
}

func (s *State) AllyDeathsInLast30s(gameTime float64) int {
	n := 0
	for _, t := range s.allyDeaths {
		if gameTime-t <= 30 {
			n++
		}
	}
	return n
}

func (s *State) pruneAllyDeaths(gameTime float64) {
	kept := s.allyDeaths[:0]
	for _, t := range s.allyDeaths {
		if gameTime-t <= 30 {
			kept = append(kept, t)
		}
	}
	s.allyDeaths = kept
}

// SeedAllyDeath directly records an ally-victim death time, used both
// by ChampionKill event ingestion and test fixtures.
func (s *State) SeedAllyDeath(gameTime float64) {
	s.allyDeaths = append(s.allyDeaths, gameTime)
}

func (s *State) BaronAlive(gameTime float64) bool {
	return gameTime >= s.baronNextUp
}

func (s *State) RecordBaronKill(gameTime float64) {
	s.baronNextUp = gameTime + 360
}

func (s *State) DrakeCount(team string) int { return s.drakeCount[team] }

func (s *State) RecordDragonKill(killerTeam string) {
	s.drakeCount[killerTeam]++
}

func (s *State) TurretsDown(team, lane string) int {
	return s.turretsDown[team][lane]
}

func (s *State) RecordTurretKill(team, lane string) {
	s.turretsDown[team][lane]++
}

func (s *State) InhibDown(team, lane string) bool {
	return s.inhibsDown[team][lane]
}

func (s *State) AnyInhibDown(team string) bool {
	for _, down := range s.inhibsDown[team] {
		if down {
			return true
		}
	}
	return false
}

func (s *State) RecordInhibKill(team, lane string) {
	s.inhibsDown[team][lane] = true
}

func (s *State) RecordInhibRespawn(team, lane string) {
	delete(s.inhibsDown[team], lane)
}

// SeenEvent reports whether name:id has already been processed,
// recording it if not (spec's event-dedup: repeats ignored).
func (s *State) SeenEvent(name string, id int) bool {
	key := fmt.Sprintf("%s:%d", name, id)
	if s.seenEvents[key] {
		return true
	}
	s.seenEvents[key] = true
	return false
}

func (s *State) LastReportedLead() float64    { return s.lastLead }
func (s *State) SetLastReportedLead(v float64) { s.lastLead = v }

// PowerSpikeReported reports whether level has already triggered a
// power-spike notice for this player, recording it if not.
func (s *State) PowerSpikeReported(summoner string, level int) bool {
	if s.lastLevelTag[summoner] >= level {
		return true
	}
	s.lastLevelTag[summoner] = level
	return false
}

// ParseTurretName parses "Turret_T1_R_03_A" into {team, lane}.
func ParseTurretName(name string) (team, lane string, ok bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 || parts[0] != "Turret" {
		return "", "", false
	}
	team, ok = teamFromToken(parts[1])
	if !ok {
		return "", "", false
	}
	lane, ok = laneFromCode(parts[2])
	return team, lane, ok
}

// ParseInhibName parses "Barracks_T2_L1" into {team, lane}.
func ParseInhibName(name string) (team, lane string, ok bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 || parts[0] != "Barracks" {
		return "", "", false
	}
	team, ok = teamFromToken(parts[1])
	if !ok {
		return "", "", false
	}
	lane, ok = laneFromCode(parts[2])
	return team, lane, ok
}

func teamFromToken(tok string) (string, bool) {
	switch tok {
	case "T1":
		return Order, true
	case "T2":
		return Chaos, true
	default:
		return "", false
	}
}

func laneFromCode(code string) (string, bool) {
	if code == "" {
		return "", false
	}
	switch code[0] {
	case 'R':
		return "bot", true
	case 'C':
		return "mid", true
	case 'L':
		return "top", true
	default:
		return "", false
	}
}
