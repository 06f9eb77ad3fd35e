package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func TestEventChannel_ForwardsGameflowPhaseOnly(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		_, _, err = conn.Read(ctx) // subscribe frame
		if err != nil {
			return
		}

		irrelevant, _ := json.Marshal([]any{8, "OnJsonApiEvent", map[string]any{
			"uri": "/lol-champ-select/v1/session", "data": map[string]any{},
		}})
		conn.Write(ctx, websocket.MessageText, irrelevant)

		phaseFrame, _ := json.Marshal([]any{8, "OnJsonApiEvent", map[string]any{
			"uri": gameflowPhaseURI, "data": "ChampSelect",
		}})
		conn.Write(ctx, websocket.MessageText, phaseFrame)

		<-ctx.Done()
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	creds := Credentials{Port: port, Secret: "s3cret", Scheme: "https"}

	received := make(chan string, 4)
	ec := NewEventChannel(creds, nil, func(raw string) { received <- raw })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ec.Run(ctx)

	select {
	case got := <-received:
		if got != "ChampSelect" {
			t.Fatalf("expected ChampSelect, got %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for gameflow-phase event")
	}

	select {
	case got := <-received:
		t.Fatalf("expected non-gameflow-phase frame to be dropped, got %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}
