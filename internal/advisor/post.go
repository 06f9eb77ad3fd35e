package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// EOGFetcher is the slice of C1's REST capability the post-game
// pipeline needs.
type EOGFetcher interface {
	EndOfGameStats(ctx context.Context) ([]byte, error)
}

// PostAdvisor fetches the end-of-game blob once on phase entry,
// derives a local deterministic score, and invokes the LLM exactly
// once.
type PostAdvisor struct {
	fetch  EOGFetcher
	invoke func(ctx context.Context, contextText string)

	invoked bool
}

func NewPostAdvisor(fetch EOGFetcher, invoke func(ctx context.Context, contextText string)) *PostAdvisor {
	return &PostAdvisor{fetch: fetch, invoke: invoke}
}

func (p *PostAdvisor) Name() Kind { return Post }

func (p *PostAdvisor) SystemDirective() string {
	return "You review a just-finished League of Legends match and summarize what went well and what to improve."
}

func (p *PostAdvisor) Tools() []ToolSchema { return nil }

func (p *PostAdvisor) OnActivate(ctx context.Context) error {
	if p.invoked {
		return nil
	}
	p.invoked = true

	blob, err := p.fetch.EndOfGameStats(ctx)
	if err != nil {
		p.invoked = false
		return err
	}

	score := deterministicScore(blob)
	if p.invoke != nil {
		p.invoke(ctx, buildPostContext(blob, score))
	}
	return nil
}

func (p *PostAdvisor) OnDeactivate(ctx context.Context) error {
	p.invoked = false
	return nil
}

func (p *PostAdvisor) HandleTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("post advisor: no tools registered, got %q", name)
}

// deterministicScore derives a stable 0-100 performance score from the
// raw end-of-game blob bytes. It is a local heuristic, not an LLM call
// — the blob's own schema is outside this core's scope.
func deterministicScore(blob []byte) int {
	sum := sha256.Sum256(blob)
	var acc int
	for _, b := range sum[:8] {
		acc += int(b)
	}
	return acc % 101
}

func buildPostContext(blob []byte, score int) string {
	var pretty json.RawMessage = blob
	return fmt.Sprintf("post_game_phase: local_score=%d eog=%s", score, string(pretty))
}
