package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
)

func newTestRESTClient(t *testing.T, handler http.HandlerFunc) (*RESTClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	creds := Credentials{Port: port, Secret: "s3cret", Scheme: "https"}
	return NewRESTClient(creds), srv
}

func TestRESTClient_GameflowPhase(t *testing.T) {
	client, srv := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "riot" || pass != "s3cret" {
			t.Fatalf("expected basic auth riot/s3cret, got %q/%q ok=%v", user, pass, ok)
		}
		w.Write([]byte(`"ChampSelect"`))
	})
	defer srv.Close()

	phase, err := client.GameflowPhase(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if phase != "ChampSelect" {
		t.Fatalf("expected ChampSelect, got %q", phase)
	}
}

func TestRESTClient_ErrorStatusSurfaces(t *testing.T) {
	client, srv := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	if _, err := client.GameflowPhase(context.Background()); err == nil {
		t.Fatalf("expected error to surface to caller")
	}
}
