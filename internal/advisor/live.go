package advisor

import "context"

// LiveSignal is what C6 hands to the live advisor for the subset of
// C5's dispatched trigger results judged LLM-worthy (as opposed to the
// local-only macro calls that go straight to the overlay).
type LiveSignal struct {
	Code        string
	Urgency     string
	ContextText string
}

// LiveAdvisor subscribes to C5's trigger output and invokes the LLM
// for signals routed to it.
type LiveAdvisor struct {
	invoke func(ctx context.Context, contextText string)
	active bool
}

func NewLiveAdvisor(invoke func(ctx context.Context, contextText string)) *LiveAdvisor {
	return &LiveAdvisor{invoke: invoke}
}

func (l *LiveAdvisor) Name() Kind { return Live }

func (l *LiveAdvisor) SystemDirective() string {
	return "You advise a League of Legends player mid-game on tactical decisions. " +
		"Be direct and time-sensitive."
}

func (l *LiveAdvisor) Tools() []ToolSchema { return nil }

func (l *LiveAdvisor) OnActivate(ctx context.Context) error {
	l.active = true
	return nil
}

func (l *LiveAdvisor) OnDeactivate(ctx context.Context) error {
	l.active = false
	return nil
}

func (l *LiveAdvisor) HandleTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	return nil, nil
}

// Dispatch forwards an LLM-worthy signal to invoke, dropping it
// silently if the advisor is not currently active.
func (l *LiveAdvisor) Dispatch(ctx context.Context, signal LiveSignal) {
	if !l.active || l.invoke == nil {
		return
	}
	l.invoke(ctx, signal.ContextText)
}
