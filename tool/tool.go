// Package tool defines the collaborator contract consumed by handlers:
// external capabilities (mail scanning, document extraction, payments, form
// filling) invoked with key/value parameters and resolving to a structured
// success-or-error result. The core never assumes a tool blocks indefinitely;
// every tool must eventually resolve.
package tool

import (
	"context"
	"fmt"
)

// Result is the uniform outcome of a tool invocation. A failed invocation
// carries a string error here rather than a Go error: handlers recover tool
// failures into structured results instead of raising them.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Ok builds a successful result.
func Ok(data map[string]any) *Result {
	if data == nil {
		data = map[string]any{}
	}
	return &Result{Success: true, Data: data}
}

// Fail builds a failed result with a formatted error string.
func Fail(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Tool is the contract every external collaborator implements.
//
// Execute returns a Go error only for invocation-level faults (cancelled
// context, programming errors); domain failures are reported through
// Result.Error so the caller can recover them locally.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// ToolError represents invocation-level tool faults with a code for
// categorization.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
