package advisor

import (
	"context"
	"errors"
	"testing"
)

type stubAdvisor struct {
	name        Kind
	tools       []ToolSchema
	onTool      func(ctx context.Context, name string, input map[string]any) (map[string]any, error)
	activated   int
	deactivated int
}

func (s *stubAdvisor) Name() Kind                  { return s.name }
func (s *stubAdvisor) SystemDirective() string     { return "stub" }
func (s *stubAdvisor) Tools() []ToolSchema         { return s.tools }
func (s *stubAdvisor) OnActivate(ctx context.Context) error {
	s.activated++
	return nil
}
func (s *stubAdvisor) OnDeactivate(ctx context.Context) error {
	s.deactivated++
	return nil
}
func (s *stubAdvisor) HandleTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	if s.onTool != nil {
		return s.onTool(ctx, name, input)
	}
	return map[string]any{}, nil
}

type stubLLM struct {
	responses []CompletionResult
	errs      []error
	calls     int
}

func (s *stubLLM) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return CompletionResult{}, s.errs[i]
	}
	if i >= len(s.responses) {
		return CompletionResult{Text: "done"}, nil
	}
	return s.responses[i], nil
}

func TestInvoke_TextOnlyResponseStopsImmediately(t *testing.T) {
	adv := &stubAdvisor{name: Draft}
	llm := &stubLLM{responses: []CompletionResult{{Text: "final answer"}}}

	res := Invoke(context.Background(), llm, adv, "context")
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.Text != "final answer" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if llm.calls != 1 {
		t.Fatalf("expected exactly one LLM call, got %d", llm.calls)
	}
}

func TestInvoke_ToolLoopRunsUntilTextResponse(t *testing.T) {
	adv := &stubAdvisor{name: Draft}
	llm := &stubLLM{responses: []CompletionResult{
		{ToolCalls: []ToolCall{{ID: "1", Name: "lookup", Input: map[string]any{}}}},
		{ToolCalls: []ToolCall{{ID: "2", Name: "lookup", Input: map[string]any{}}}},
		{Text: "resolved"},
	}}

	res := Invoke(context.Background(), llm, adv, "context")
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.Text != "resolved" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if llm.calls != 3 {
		t.Fatalf("expected 3 rounds, got %d", llm.calls)
	}
}

func TestInvoke_MaxRoundsBoundStopsLoop(t *testing.T) {
	adv := &stubAdvisor{name: Draft}
	var responses []CompletionResult
	for i := 0; i < 20; i++ {
		responses = append(responses, CompletionResult{ToolCalls: []ToolCall{{ID: "x", Name: "lookup"}}})
	}
	llm := &stubLLM{responses: responses}

	res := Invoke(context.Background(), llm, adv, "context")
	if res.Err == "" {
		t.Fatalf("expected max-rounds error")
	}
	if llm.calls != maxToolRounds {
		t.Fatalf("expected exactly %d rounds, got %d", maxToolRounds, llm.calls)
	}
}

func TestInvoke_ToolHandlerErrorBecomesToolResult(t *testing.T) {
	adv := &stubAdvisor{name: Draft, onTool: func(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
		return nil, errors.New("boom")
	}}
	llm := &stubLLM{responses: []CompletionResult{
		{ToolCalls: []ToolCall{{ID: "1", Name: "lookup"}}},
		{Text: "recovered"},
	}}

	res := Invoke(context.Background(), llm, adv, "context")
	if res.Err != "" {
		t.Fatalf("expected the loop to continue past a tool error, got %s", res.Err)
	}
	if res.Text != "recovered" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestCompleteWithRetry_RetriesOnTransientError(t *testing.T) {
	llm := &stubLLM{
		errs:      []error{errors.New("transient"), errors.New("transient")},
		responses: []CompletionResult{{}, {}, {Text: "ok"}},
	}
	adv := &stubAdvisor{name: Draft}
	res := Invoke(context.Background(), llm, adv, "context")
	if res.Text != "ok" {
		t.Fatalf("expected eventual success after retries, got %+v", res)
	}
}
