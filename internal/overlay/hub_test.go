package overlay

import (
	"testing"
	"time"
)

func TestHub_SendFansOutToAllClients(t *testing.T) {
	h := NewHub(nil)
	a := h.join("a")
	b := h.join("b")

	if err := h.Send("advice", map[string]string{"text": "ward river"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for name, ch := range map[string]chan OverlayEnvelope{"a": a, "b": b} {
		select {
		case env := <-ch:
			if env.Channel != "advice" {
				t.Fatalf("%s: expected channel %q, got %q", name, "advice", env.Channel)
			}
			if env.Seq != 1 {
				t.Fatalf("%s: expected first envelope to carry seq 1, got %d", name, env.Seq)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: timed out waiting for envelope", name)
		}
	}
}

func TestHub_SendIncrementsSeqPerConnectionIndependently(t *testing.T) {
	h := NewHub(nil)
	a := h.join("a")

	if err := h.Send("advice", "one"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	b := h.join("b")
	if err := h.Send("advice", "two"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	env := <-a
	if env.Seq != 1 {
		t.Fatalf("expected a's first envelope to carry seq 1, got %d", env.Seq)
	}
	env = <-a
	if env.Seq != 2 {
		t.Fatalf("expected a's second envelope to carry seq 2, got %d", env.Seq)
	}
	env = <-b
	if env.Seq != 1 {
		t.Fatalf("expected b's first envelope (its only one so far) to carry seq 1, got %d", env.Seq)
	}
}

func TestHub_SendDropsClientWithFullOutbox(t *testing.T) {
	h := NewHub(nil)
	h.mu.Lock()
	slow := make(chan OverlayEnvelope) // unbuffered: any send blocks without a reader
	h.clients["slow"] = &connection{ch: slow}
	h.mu.Unlock()

	if err := h.Send("advice", "payload"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	h.mu.Lock()
	_, stillPresent := h.clients["slow"]
	h.mu.Unlock()
	if stillPresent {
		t.Fatalf("expected slow client to be dropped from the hub")
	}

	select {
	case _, ok := <-slow:
		if ok {
			t.Fatalf("expected slow client's channel to be closed, not sent to")
		}
	default:
		t.Fatalf("expected slow client's channel to be closed")
	}
}

func TestHub_LeaveRemovesClient(t *testing.T) {
	h := NewHub(nil)
	h.join("a")
	h.leave("a")

	h.mu.Lock()
	_, present := h.clients["a"]
	h.mu.Unlock()
	if present {
		t.Fatalf("expected client to be removed after leave")
	}
}
