package advisor

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/willckim/rift-architect/internal/session"
)

type fakeChampSelectFetcher struct {
	calls     int32
	responses []session.ChampSelectSession
}

func (f *fakeChampSelectFetcher) ChampSelectSessionState(ctx context.Context) (session.ChampSelectSession, error) {
	i := atomic.AddInt32(&f.calls, 1) - 1
	if int(i) >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	return f.responses[i], nil
}

// The first poll after activation only seeds the baseline action-list
// hash; only a genuine subsequent change should fire an invoke.
func TestDraftAdvisor_InvokesOnlyOnActionListChange(t *testing.T) {
	unchanged := session.ChampSelectSession{
		Actions: [][]session.ChampSelectAction{{{Type: "ban", ActorCellID: 0, ChampionID: 1}}},
	}
	changed := session.ChampSelectSession{
		Actions: [][]session.ChampSelectAction{{{Type: "ban", ActorCellID: 0, ChampionID: 2}}},
	}

	fetcher := &fakeChampSelectFetcher{responses: []session.ChampSelectSession{unchanged, unchanged, changed, changed}}

	var mu sync.Mutex
	var invocations []string
	invoke := func(ctx context.Context, contextText string) {
		mu.Lock()
		invocations = append(invocations, contextText)
		mu.Unlock()
	}

	d := NewDraftAdvisor(fetcher, invoke)
	if err := d.OnActivate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 4; i++ {
		d.tick(context.Background())
	}
	d.OnDeactivate(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(invocations) != 1 {
		t.Fatalf("expected exactly 1 invocation (baseline poll seeds the hash, one genuine change fires), got %d", len(invocations))
	}
	for _, ctxText := range invocations {
		if !strings.Contains(ctxText, "draft_phase") {
			t.Fatalf("expected context text to contain draft_phase, got %q", ctxText)
		}
	}
}

func TestDraftAdvisor_SelfClosesOnLocalPickCommitted(t *testing.T) {
	committed := session.ChampSelectSession{
		LocalPlayerCellID: 3,
		Actions: [][]session.ChampSelectAction{{
			{Type: "pick", ActorCellID: 3, ChampionID: 99, Completed: true},
		}},
	}
	fetcher := &fakeChampSelectFetcher{responses: []session.ChampSelectSession{committed}}
	d := NewDraftAdvisor(fetcher, func(ctx context.Context, contextText string) {})

	if done := d.tick(context.Background()); !done {
		t.Fatalf("expected tick to report local pick committed")
	}
}

func TestDraftAdvisor_PollLoopStopsAfterCommit(t *testing.T) {
	committed := session.ChampSelectSession{
		LocalPlayerCellID: 3,
		Actions: [][]session.ChampSelectAction{{
			{Type: "pick", ActorCellID: 3, ChampionID: 99, Completed: true},
		}},
	}
	fetcher := &fakeChampSelectFetcher{responses: []session.ChampSelectSession{committed}}
	d := NewDraftAdvisor(fetcher, func(ctx context.Context, contextText string) {})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.pollLoop(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(draftPollInterval + 2*time.Second):
		t.Fatalf("expected the poll loop to return once the local pick was committed")
	}
	if n := atomic.LoadInt32(&fetcher.calls); n != 1 {
		t.Fatalf("expected exactly one fetch before the poll loop stopped, got %d", n)
	}
}
