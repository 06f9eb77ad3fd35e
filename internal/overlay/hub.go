package overlay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// connection holds one overlay window's outbound channel plus its own
// monotonic sequence counter: each connection numbers the envelopes it
// receives starting at 1, independent of every other connection, so a
// window that reconnects mid-match starts a fresh, locally-coherent
// sequence rather than inheriting a number space shared across clients.
type connection struct {
	ch  chan OverlayEnvelope
	seq uint64
}

// Hub fans a single stream of envelopes out to every connected overlay
// window: one outbound channel per connection, a non-blocking send,
// and a slow client is dropped rather than allowed to stall the rest.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*connection
}

// NewHub builds an empty Hub. It satisfies the Sink interface the
// orchestrator (C6) writes advice and status onto.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[string]*connection),
	}
}

// Send implements Sink. It never blocks: a connection whose outbound
// channel is full is disconnected on the spot rather than allowed to
// stall every other overlay window.
func (h *Hub) Send(channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.seq++
		env := OverlayEnvelope{Channel: channel, Payload: body, Seq: c.seq}
		select {
		case c.ch <- env:
		default:
			h.logger.Warn("overlay: dropping slow client", zap.String("client", id))
			close(c.ch)
			delete(h.clients, id)
		}
	}
	return nil
}

func (h *Hub) join(id string) chan OverlayEnvelope {
	c := &connection{ch: make(chan OverlayEnvelope, 16)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c.ch
}

func (h *Hub) leave(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Handler upgrades to a websocket and streams this Hub's envelopes to
// the connection until it closes. The overlay is a passive renderer:
// inbound frames are read only to detect the client going away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		id := uuid.NewString()
		out := h.join(id)
		defer h.leave(id)

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			for env := range out {
				body, err := json.Marshal(env)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				err = conn.Write(ctx, websocket.MessageText, body)
				cancel()
				if err != nil {
					conn.Close(websocket.StatusInternalError, "write failed")
					return
				}
			}
			// out was closed by Hub.Send dropping a slow client; force
			// the reader loop below to unblock.
			conn.Close(websocket.StatusPolicyViolation, "slow client")
		}()

		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				writeCancel()
				<-done
				return
			}
		}
	}
}
