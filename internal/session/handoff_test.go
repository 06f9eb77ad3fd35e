package session

import "testing"

func TestParseHandoff(t *testing.T) {
	creds, ok := ParseHandoff([]byte("LeagueClient:1234:54321:abc123:https"))
	if !ok {
		t.Fatalf("expected well-formed handoff to parse")
	}
	if creds.Name != "LeagueClient" || creds.ProcessID != 1234 || creds.Port != 54321 ||
		creds.Secret != "abc123" || creds.Scheme != "https" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if creds.BaseURL() != "https://127.0.0.1:54321" {
		t.Fatalf("unexpected base url: %s", creds.BaseURL())
	}
}

func TestParseHandoff_TooFewFieldsRejected(t *testing.T) {
	if _, ok := ParseHandoff([]byte("LeagueClient:1234:54321:abc123")); ok {
		t.Fatalf("expected 4-field handoff to be rejected")
	}
}

func TestParseHandoff_NonNumericFieldsRejected(t *testing.T) {
	if _, ok := ParseHandoff([]byte("LeagueClient:abc:port:secret:https")); ok {
		t.Fatalf("expected non-numeric pid/port to be rejected")
	}
}

// Parsing the same bytes yields equal credentials.
func TestParseHandoff_Idempotent(t *testing.T) {
	raw := []byte("LeagueClient:1234:54321:abc123:https")
	a, okA := ParseHandoff(raw)
	b, okB := ParseHandoff(raw)
	if !okA || !okB || a != b {
		t.Fatalf("expected repeated parses to be equal, got %+v vs %+v", a, b)
	}
}

func TestParseHandoff_AcceptsExtraTrailingFields(t *testing.T) {
	_, ok := ParseHandoff([]byte("LeagueClient:1234:54321:abc123:https:extra"))
	if !ok {
		t.Fatalf("expected five-or-more fields to be accepted")
	}
}
