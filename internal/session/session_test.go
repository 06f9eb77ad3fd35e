package session

import (
	"context"
	"testing"
	"time"
)

func TestManager_EmitsConnectedAndDisconnected(t *testing.T) {
	probe := &FakeProbe{}
	mgr := NewManager(probe, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	probe.HasDir = true
	probe.InstallDir = "/opt/riotgames/league-of-legends"
	probe.HasHandoff = true
	probe.Handoff = []byte("LeagueClient:1:65000:secret:https")

	// Nudge a discovery tick by waiting past the first immediate tick
	// performed by Discovery.Run on entry.
	var connected ClientConnected
	select {
	case ev := <-mgr.Events():
		c, ok := ev.(ClientConnected)
		if !ok {
			t.Fatalf("expected ClientConnected, got %T", ev)
		}
		connected = c
	case <-time.After(4 * time.Second):
		t.Fatalf("timed out waiting for connected event")
	}
	if connected.Credentials.Port != 65000 {
		t.Fatalf("unexpected credentials: %+v", connected.Credentials)
	}
	if mgr.RESTCapability() == nil {
		t.Fatalf("expected a REST capability to be attached")
	}

	probe.HasHandoff = false
	select {
	case ev := <-mgr.Events():
		if _, ok := ev.(ClientDisconnected); !ok {
			t.Fatalf("expected ClientDisconnected, got %T", ev)
		}
	case <-time.After(4 * time.Second):
		t.Fatalf("timed out waiting for disconnected event")
	}
	if mgr.RESTCapability() != nil {
		t.Fatalf("expected REST capability to be torn down")
	}
}
