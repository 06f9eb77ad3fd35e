package session

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event is the sealed union of everything C1 can report to the
// orchestrator (C6). Each concrete type below implements it.
type Event interface{ isSessionEvent() }

type ClientConnected struct{ Credentials Credentials }
type ClientDisconnected struct{}
type PhaseObserved struct{ Raw string }
type TelemetrySnapshot struct{ Data json.RawMessage }
type TelemetryEvents struct{ Events []TelemetryEvent }
type TelemetryAvailability struct{ Available bool }

func (ClientConnected) isSessionEvent()       {}
func (ClientDisconnected) isSessionEvent()    {}
func (PhaseObserved) isSessionEvent()         {}
func (TelemetrySnapshot) isSessionEvent()     {}
func (TelemetryEvents) isSessionEvent()       {}
func (TelemetryAvailability) isSessionEvent() {}

// Manager owns the discovery loop and, while a client is attached, the
// REST capability, event channel, and telemetry poller for that single
// attachment. It is C1's top-level entry point.
type Manager struct {
	probe  HostProbe
	logger *zap.Logger
	events chan Event

	mu      sync.Mutex
	cancel  context.CancelFunc
	rest    *RESTClient
	creds   Credentials
	running bool
}

func NewManager(probe HostProbe, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		probe:  probe,
		logger: logger,
		events: make(chan Event, 64),
	}
}

// Events returns the channel the orchestrator consumes. It is never
// closed while the Manager is running.
func (m *Manager) Events() <-chan Event { return m.events }

// Run blocks, driving the discovery loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	d := NewDiscovery(m.probe, m.logger, m.handleConnected, m.handleDisconnected)
	d.Run(ctx)
	m.handleDisconnected()
}

// RESTCapability returns the current REST client, or nil if no client
// is attached. Safe for concurrent use.
func (m *Manager) RESTCapability() *RESTClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rest
}

func (m *Manager) handleConnected(creds Credentials) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	attachCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.rest = NewRESTClient(creds)
	m.creds = creds
	m.running = true
	m.mu.Unlock()

	m.events <- ClientConnected{Credentials: creds}

	ec := NewEventChannel(creds, m.logger, func(raw string) {
		m.events <- PhaseObserved{Raw: raw}
	})
	tel := NewTelemetry(m.logger,
		func(data json.RawMessage) { m.events <- TelemetrySnapshot{Data: data} },
		func(evs []TelemetryEvent) { m.events <- TelemetryEvents{Events: evs} },
		func(avail bool) { m.events <- TelemetryAvailability{Available: avail} },
	)

	go ec.Run(attachCtx)
	go tel.Run(attachCtx)
}

func (m *Manager) handleDisconnected() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.rest = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.events <- ClientDisconnected{}
}
