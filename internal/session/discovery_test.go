package session

import "testing"

func TestDiscovery_EdgeTriggeredConnectDisconnect(t *testing.T) {
	probe := &FakeProbe{}
	var connects, disconnects int
	var lastCreds Credentials

	d := NewDiscovery(probe, nil, func(c Credentials) {
		connects++
		lastCreds = c
	}, func() {
		disconnects++
	})

	// Not found: no edge.
	d.tick()
	if connects != 0 || disconnects != 0 {
		t.Fatalf("expected no edges while undiscovered, got connects=%d disconnects=%d", connects, disconnects)
	}

	// Found: rising edge.
	probe.HasDir = true
	probe.InstallDir = "/opt/riotgames/league-of-legends"
	probe.HasHandoff = true
	probe.Handoff = []byte("LeagueClient:1234:54321:abc123:https")
	d.tick()
	if connects != 1 {
		t.Fatalf("expected exactly one connect, got %d", connects)
	}
	if lastCreds.Port != 54321 {
		t.Fatalf("unexpected credentials relayed: %+v", lastCreds)
	}

	// Still found: no repeat edge.
	d.tick()
	if connects != 1 {
		t.Fatalf("expected no repeated connect while still found, got %d", connects)
	}

	// Lost: falling edge.
	probe.HasHandoff = false
	d.tick()
	if disconnects != 1 {
		t.Fatalf("expected exactly one disconnect, got %d", disconnects)
	}

	// Still lost: no repeat edge.
	d.tick()
	if disconnects != 1 {
		t.Fatalf("expected no repeated disconnect while still lost, got %d", disconnects)
	}
}

func TestDiscovery_MalformedHandoffTreatedAsNotFound(t *testing.T) {
	probe := &FakeProbe{HasDir: true, InstallDir: "/x", HasHandoff: true, Handoff: []byte("garbage")}
	var connects int
	d := NewDiscovery(probe, nil, func(Credentials) { connects++ }, func() {})
	d.tick()
	if connects != 0 {
		t.Fatalf("expected malformed handoff to never emit connected, got %d", connects)
	}
}
