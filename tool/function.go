package tool

import "context"

// FunctionTool is a generic adapter exposing a plain Go function as a Tool.
// It validates required parameters before execution so implementations can
// assume their presence. A FunctionTool has no internal mutable state after
// construction and is safe for concurrent use.
type FunctionTool struct {
	name        string
	description string
	required    []string
	fn          func(ctx context.Context, params map[string]any) (*Result, error)
}

// NewFunctionTool constructs a FunctionTool.
//
// required lists parameter keys that must be present; a missing key resolves
// to a failed Result rather than a Go error, matching the tool contract.
func NewFunctionTool(
	name, description string,
	required []string,
	fn func(ctx context.Context, params map[string]any) (*Result, error),
) *FunctionTool {
	return &FunctionTool{name: name, description: description, required: required, fn: fn}
}

// Name returns the unique tool identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns a human-readable description of the tool.
func (t *FunctionTool) Description() string { return t.description }

// Execute validates required parameters then invokes the wrapped function.
func (t *FunctionTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewToolError(t.name, err.Error(), "CANCELLED")
	}
	if params == nil {
		params = map[string]any{}
	}
	for _, key := range t.required {
		if _, ok := params[key]; !ok {
			return Fail("missing required parameter %q", key), nil
		}
	}
	return t.fn(ctx, params)
}
