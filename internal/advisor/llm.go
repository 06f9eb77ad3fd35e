package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// LLM is the single-method seam C4's tool loop is built against. A
// stub implementation drives every test in this package; production
// wiring of an actual vendor SDK lives outside this core.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

type Message struct {
	Role       string // "user", "assistant", or "tool"
	Content    string
	Name       string // tool name, set only on Role == "tool"
	ToolCallID string
}

type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

type CompletionRequest struct {
	System   string
	Tools    []ToolSchema
	Messages []Message
}

type CompletionResult struct {
	Text      string
	ToolCalls []ToolCall
}

const (
	maxToolRounds      = 10
	perRequestDeadline = 30 * time.Second
	maxCompleteRetries = 2
)

// InvokeResult is what an advisor's invoke produces: either a final
// text response or an absorbed error, never a panic past this
// boundary.
type InvokeResult struct {
	Text string
	Err  string
}

// Invoke runs the bounded LLM tool-loop on advisor's behalf: send
// {system, tools, messages}; while the response carries tool calls,
// run HandleTool for each and append the results; stop on a text-only
// response or after maxToolRounds.
func Invoke(ctx context.Context, llm LLM, adv Advisor, contextText string) InvokeResult {
	messages := []Message{{Role: "user", Content: contextText}}

	for round := 0; round < maxToolRounds; round++ {
		result, err := completeWithRetry(ctx, llm, CompletionRequest{
			System:   adv.SystemDirective(),
			Tools:    adv.Tools(),
			Messages: messages,
		})
		if err != nil {
			return InvokeResult{Err: err.Error()}
		}
		if len(result.ToolCalls) == 0 {
			return InvokeResult{Text: result.Text}
		}

		messages = append(messages, Message{Role: "assistant", Content: result.Text})
		for _, tc := range result.ToolCalls {
			out, err := adv.HandleTool(ctx, tc.Name, tc.Input)
			if err != nil {
				out = map[string]any{"error": err.Error()}
			}
			messages = append(messages, Message{
				Role:       "tool",
				Name:       tc.Name,
				ToolCallID: tc.ID,
				Content:    encodeToolResult(out),
			})
		}
	}

	return InvokeResult{Err: "advisor: exceeded max tool-loop rounds"}
}

func encodeToolResult(out map[string]any) string {
	b, err := json.Marshal(out)
	if err != nil {
		return `{"error":"failed to encode tool result"}`
	}
	return string(b)
}

func completeWithRetry(ctx context.Context, llm LLM, req CompletionRequest) (CompletionResult, error) {
	var lastErr error
	for attempt := 0; attempt <= maxCompleteRetries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, perRequestDeadline)
		result, err := llm.Complete(reqCtx, req)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(ctx.Err(), context.Canceled) {
			return CompletionResult{}, ctx.Err()
		}
	}
	return CompletionResult{}, lastErr
}
