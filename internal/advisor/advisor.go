package advisor

import "context"

// Kind identifies one of the three pluggable advisor instances.
type Kind string

const (
	Draft Kind = "draft"
	Live  Kind = "live"
	Post  Kind = "post"
)

// ToolSchema names one tool an advisor exposes to the LLM tool loop.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Advisor is the contract every pluggable advisor instance satisfies.
// The runtime owns one instance per Kind and starts at most one at a
// time, per the phase→advisor map.
type Advisor interface {
	Name() Kind
	SystemDirective() string
	Tools() []ToolSchema

	OnActivate(ctx context.Context) error
	OnDeactivate(ctx context.Context) error

	HandleTool(ctx context.Context, name string, input map[string]any) (map[string]any, error)
}
