package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/willckim/rift-architect/internal/session"
)

const draftPollInterval = 3 * time.Second

// ChampSelectFetcher is the slice of C1's REST capability the draft
// pipeline needs.
type ChampSelectFetcher interface {
	ChampSelectSessionState(ctx context.Context) (session.ChampSelectSession, error)
}

// DraftAdvisor polls the champ-select session, invokes the LLM only
// when the action list actually changes, and closes itself once the
// local player's pick is committed.
type DraftAdvisor struct {
	fetch  ChampSelectFetcher
	invoke func(ctx context.Context, contextText string)

	cancel       context.CancelFunc
	lastHash     string
	seenBaseline bool
}

func NewDraftAdvisor(fetch ChampSelectFetcher, invoke func(ctx context.Context, contextText string)) *DraftAdvisor {
	return &DraftAdvisor{fetch: fetch, invoke: invoke}
}

func (d *DraftAdvisor) Name() Kind { return Draft }

func (d *DraftAdvisor) SystemDirective() string {
	return "You advise a League of Legends player during champion select. " +
		"Consider bans, picks, and team composition. Be concise."
}

func (d *DraftAdvisor) Tools() []ToolSchema { return nil }

func (d *DraftAdvisor) OnActivate(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.lastHash = ""
	d.seenBaseline = false
	go d.pollLoop(loopCtx)
	return nil
}

func (d *DraftAdvisor) OnDeactivate(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	return nil
}

func (d *DraftAdvisor) HandleTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("draft advisor: no tools registered, got %q", name)
}

func (d *DraftAdvisor) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(draftPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.tick(ctx) {
				return
			}
		}
	}
}

// tick fetches once, invokes on hash change, and reports whether the
// local pick is now committed (the pipeline's self-close condition).
// The first fetch after activation only seeds the baseline hash; it
// never invokes, since there is nothing yet to compare it against.
func (d *DraftAdvisor) tick(ctx context.Context) bool {
	cs, err := d.fetch.ChampSelectSessionState(ctx)
	if err != nil {
		return false
	}

	hash := hashActions(cs.Actions)
	if !d.seenBaseline {
		d.lastHash = hash
		d.seenBaseline = true
	} else if hash != d.lastHash {
		d.lastHash = hash
		if d.invoke != nil {
			d.invoke(ctx, buildDraftContext(cs))
		}
	}

	return localPickCommitted(cs)
}

func localPickCommitted(cs session.ChampSelectSession) bool {
	for _, group := range cs.Actions {
		for _, a := range group {
			if a.ActorCellID == cs.LocalPlayerCellID && a.Type == "pick" && a.Completed {
				return true
			}
		}
	}
	return false
}

func hashActions(actions [][]session.ChampSelectAction) string {
	b, err := json.Marshal(actions)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func buildDraftContext(cs session.ChampSelectSession) string {
	b, _ := json.Marshal(cs)
	return fmt.Sprintf("draft_phase: champ-select action list changed. session=%s", string(b))
}
