package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	telemetryBaseURL      = "https://127.0.0.1:2999/liveclientdata"
	telemetrySnapshotRate = 10 * time.Second
	telemetryEventRate    = 5 * time.Second
)

// TelemetryEvent is one entry from /eventdata. EventID is monotonic
// within a match; kind-specific fields ride in Raw.
type TelemetryEvent struct {
	EventID   int             `json:"EventID"`
	EventName string          `json:"EventName"`
	EventTime float64         `json:"EventTime"`
	Raw       json.RawMessage `json:"-"`
}

// Telemetry is C1's distinct, read-only in-match data source. It never
// retries an individual miss — the next tick is soon enough — and
// emits available/unavailable edges when reachability flips.
type Telemetry struct {
	logger  *zap.Logger
	http    *http.Client
	baseURL string

	onSnapshot     func(json.RawMessage)
	onEvents       func([]TelemetryEvent)
	onAvailability func(bool)

	mu         sync.Mutex
	available  bool
	maxEventID int
}

func NewTelemetry(logger *zap.Logger, onSnapshot func(json.RawMessage), onEvents func([]TelemetryEvent), onAvailability func(bool)) *Telemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telemetry{
		logger:         logger,
		baseURL:        telemetryBaseURL,
		onSnapshot:     onSnapshot,
		onEvents:       onEvents,
		onAvailability: onAvailability,
		maxEventID:     -1,
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		},
	}
}

// Run blocks, driving both cadences until ctx is cancelled. Call it in
// its own goroutine.
func (t *Telemetry) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		t.pollLoop(ctx, telemetrySnapshotRate, t.pollSnapshot)
	}()
	go func() {
		defer wg.Done()
		t.pollLoop(ctx, telemetryEventRate, t.pollEvents)
	}()
	wg.Wait()
}

func (t *Telemetry) pollLoop(ctx context.Context, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.runTick(ctx, fn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runTick(ctx, fn)
		}
	}
}

func (t *Telemetry) runTick(ctx context.Context, fn func(context.Context) error) {
	err := fn(ctx)
	t.mu.Lock()
	wasAvailable := t.available
	t.available = err == nil
	flipped := wasAvailable != t.available
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("session: telemetry poll missed, absorbing", zap.Error(err))
	}
	if flipped && t.onAvailability != nil {
		t.onAvailability(t.available)
	}
}

func (t *Telemetry) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (t *Telemetry) pollSnapshot(ctx context.Context) error {
	body, err := t.get(ctx, "/allgamedata")
	if err != nil {
		return err
	}
	if t.onSnapshot != nil {
		t.onSnapshot(json.RawMessage(body))
	}
	return nil
}

type eventDataResponse struct {
	Events []json.RawMessage `json:"Events"`
}

// pollEvents tracks the max observed monotonic event ID and emits only
// newly-seen events, strictly in increasing ID order. Each event's
// full JSON is preserved in Raw so consumers can decode kind-specific
// fields this poller doesn't itself know about.
func (t *Telemetry) pollEvents(ctx context.Context) error {
	body, err := t.get(ctx, "/eventdata")
	if err != nil {
		return err
	}
	var parsed eventDataResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return err
	}

	t.mu.Lock()
	var fresh []TelemetryEvent
	for _, raw := range parsed.Events {
		var ev TelemetryEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		ev.Raw = raw
		if ev.EventID > t.maxEventID {
			fresh = append(fresh, ev)
		}
	}
	if len(fresh) > 0 {
		t.maxEventID = fresh[len(fresh)-1].EventID
	}
	t.mu.Unlock()

	if len(fresh) > 0 && t.onEvents != nil {
		t.onEvents(fresh)
	}
	return nil
}
