package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	eventChannelReconnectDelay = 3 * time.Second
	gameflowPhaseURI           = "/lol-gameflow/v1/gameflow-phase"
)

// subscribeFrame is the "[5, "OnJsonApiEvent"]" message sent once per
// connection to subscribe to the aggregate event topic.
var subscribeFrame = mustMarshal([]any{5, "OnJsonApiEvent"})

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// EventChannel is C1's persistent subscription to the client's event
// bus. It filters for the gameflow-phase topic and forwards the raw
// phase string to C3 via onPhase; every other topic is dropped.
type EventChannel struct {
	creds   Credentials
	logger  *zap.Logger
	onPhase func(raw string)

	httpClient *http.Client
}

func NewEventChannel(creds Credentials, logger *zap.Logger, onPhase func(string)) *EventChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventChannel{
		creds:   creds,
		logger:  logger,
		onPhase: onPhase,
		httpClient: &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		},
	}
}

// Run blocks, reconnecting every 3 s on any read/dial error, until ctx
// is cancelled. Call it in its own goroutine.
func (e *EventChannel) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := e.connectOnce(ctx); err != nil {
			e.logger.Debug("session: event channel disconnected, will retry", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(eventChannelReconnectDelay):
		}
	}
}

func (e *EventChannel) connectOnce(ctx context.Context) error {
	header := make(http.Header)
	url := fmt.Sprintf("wss://127.0.0.1:%d/", e.creds.Port)

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: e.httpClient,
		HTTPHeader: e.authHeader(header),
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := conn.Write(ctx, websocket.MessageText, subscribeFrame); err != nil {
		return err
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		e.handleFrame(data)
	}
}

func (e *EventChannel) authHeader(h http.Header) http.Header {
	req := &http.Request{Header: h}
	req.SetBasicAuth("riot", e.creds.Secret)
	return h
}

// handleFrame parses [8, "OnJsonApiEvent", {uri,data,eventType}] and
// forwards only the gameflow-phase topic. Malformed frames are dropped
// silently per §7's "Malformed" fault class.
func (e *EventChannel) handleFrame(raw []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil || len(frame) < 3 {
		return
	}

	var opcode int
	if err := json.Unmarshal(frame[0], &opcode); err != nil || opcode != 8 {
		return
	}

	var payload struct {
		URI  string          `json:"uri"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame[2], &payload); err != nil {
		return
	}
	if payload.URI != gameflowPhaseURI {
		return
	}

	var phase string
	if err := json.Unmarshal(payload.Data, &phase); err != nil {
		return
	}
	if e.onPhase != nil {
		e.onPhase(phase)
	}
}
