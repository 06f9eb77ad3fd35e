package trigger

import (
	"encoding/json"

	"golang.org/x/text/unicode/norm"
)

// normName NFC-normalizes a summoner name. Riot IDs carry arbitrary
// Unicode (Korean, accented Latin, ...); the client's own JSON
// encoding of the same name can vary in composed-vs-decomposed form
// between polls, which would otherwise silently fracture the
// name-keyed team/dedup maps in State.
func normName(s string) string {
	return norm.NFC.String(s)
}

// rawAllGameData mirrors the liveclientdata /allgamedata schema this
// core consumes: activePlayer summoner name, gameData.gameTime, and
// the allPlayers roster with per-player scoreboard stats plus the
// client's own isDead/respawnTimer fields.
type rawAllGameData struct {
	ActivePlayer struct {
		SummonerName string `json:"summonerName"`
	} `json:"activePlayer"`
	AllPlayers []struct {
		SummonerName string `json:"summonerName"`
		Team         string `json:"team"`
		Position     string `json:"position"`
		Level        int    `json:"level"`
		IsDead       bool   `json:"isDead"`
		RespawnTimer float64 `json:"respawnTimer"`
		Scores       struct {
			Kills      int `json:"kills"`
			Deaths     int `json:"deaths"`
			Assists    int `json:"assists"`
			CreepScore int `json:"creepScore"`
		} `json:"scores"`
	} `json:"allPlayers"`
	GameData struct {
		GameTime float64 `json:"gameTime"`
	} `json:"gameData"`
}

// DecodeSnapshot parses a raw /allgamedata payload into a Snapshot.
func DecodeSnapshot(raw json.RawMessage) (Snapshot, error) {
	var parsed rawAllGameData
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Snapshot{}, err
	}

	out := Snapshot{
		GameTime:             parsed.GameData.GameTime,
		ActivePlayerSummoner: normName(parsed.ActivePlayer.SummonerName),
	}
	for _, p := range parsed.AllPlayers {
		out.Players = append(out.Players, PlayerStat{
			SummonerName: normName(p.SummonerName),
			Team:         p.Team,
			Position:     p.Position,
			Level:        p.Level,
			Kills:        p.Scores.Kills,
			Deaths:       p.Scores.Deaths,
			Assists:      p.Scores.Assists,
			CreepScore:   p.Scores.CreepScore,
			IsDead:       p.IsDead,
			RespawnTimer: p.RespawnTimer,
		})
	}
	return out, nil
}

// rawEvent mirrors one /eventdata entry. The feed echoes the event
// name itself as the field name carrying the structure identifier —
// a TurretKilled event carries it under "TurretKilled", an
// InhibKilled event under "InhibKilled", and so on for the two
// inhibitor-respawn events — so each of those four is mapped to its
// own field rather than one shared "structureName" key. Kind-specific
// fields (VictimName, KillerName, Assisters) are populated when
// present; other kinds simply leave them empty.
type rawEvent struct {
	EventID             int      `json:"EventID"`
	EventName           string   `json:"EventName"`
	EventTime           float64  `json:"EventTime"`
	VictimName          string   `json:"VictimName"`
	KillerName          string   `json:"KillerName"`
	Assisters           []string `json:"Assisters"`
	TurretKilled        string   `json:"TurretKilled"`
	InhibKilled         string   `json:"InhibKilled"`
	InhibRespawningSoon string   `json:"InhibRespawningSoon"`
	InhibRespawned      string   `json:"InhibRespawned"`
}

// DecodeEvent parses one raw /eventdata entry (already extracted from
// the feed by C1's telemetry poller) into an Event.
func DecodeEvent(raw json.RawMessage) (Event, error) {
	var parsed rawEvent
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Event{}, err
	}

	name := parsed.TurretKilled
	if name == "" {
		name = parsed.InhibKilled
	}
	if name == "" {
		name = parsed.InhibRespawningSoon
	}
	if name == "" {
		name = parsed.InhibRespawned
	}

	assisters := make([]string, len(parsed.Assisters))
	for i, a := range parsed.Assisters {
		assisters[i] = normName(a)
	}

	return Event{
		ID:        parsed.EventID,
		Name:      parsed.EventName,
		GameTime:  parsed.EventTime,
		Victim:    normName(parsed.VictimName),
		Killer:    normName(parsed.KillerName),
		Assisters: assisters,
		Raw: map[string]any{
			"structureName": name,
		},
	}, nil
}
