package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeEOGFetcher struct {
	calls int
	blob  []byte
	err   error
}

func (f *fakeEOGFetcher) EndOfGameStats(ctx context.Context) ([]byte, error) {
	f.calls++
	return f.blob, f.err
}

func TestPostAdvisor_InvokesExactlyOnce(t *testing.T) {
	fetcher := &fakeEOGFetcher{blob: []byte(`{"win":true}`)}
	var invocations int
	var lastText string
	p := NewPostAdvisor(fetcher, func(ctx context.Context, contextText string) {
		invocations++
		lastText = contextText
	})

	if err := p.OnActivate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.OnActivate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if invocations != 1 {
		t.Fatalf("expected exactly one invocation, got %d", invocations)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected exactly one fetch, got %d", fetcher.calls)
	}
	if !strings.Contains(lastText, "post_game_phase") {
		t.Fatalf("expected context to carry post_game_phase tag, got %q", lastText)
	}
}

func TestPostAdvisor_FetchFailureAllowsRetryOnReactivate(t *testing.T) {
	fetcher := &fakeEOGFetcher{err: errors.New("unreachable")}
	var invocations int
	p := NewPostAdvisor(fetcher, func(ctx context.Context, contextText string) { invocations++ })

	if err := p.OnActivate(context.Background()); err == nil {
		t.Fatalf("expected fetch error to surface")
	}
	if invocations != 0 {
		t.Fatalf("expected no invocation on fetch failure")
	}

	fetcher.err = nil
	fetcher.blob = []byte(`{}`)
	if err := p.OnActivate(context.Background()); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if invocations != 1 {
		t.Fatalf("expected exactly one invocation after successful retry, got %d", invocations)
	}
}
