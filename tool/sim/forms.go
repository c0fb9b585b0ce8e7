package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clerkmesh/clerkmesh/tool"
)

// FormFiller simulates submitting a filled form. It rejects submissions with
// empty field values so workflows must resolve every field first.
type FormFiller struct {
	Latency time.Duration

	mu        sync.Mutex
	submitted int
}

// NewFormFiller returns a form filler.
func NewFormFiller() *FormFiller {
	return &FormFiller{}
}

// Name returns the tool identifier.
func (f *FormFiller) Name() string { return "form_filler" }

// Description returns the tool description.
func (f *FormFiller) Description() string {
	return "Submit a form with the given field values"
}

// Execute submits params["form_id"] with params["fields"].
func (f *FormFiller) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if err := latency(ctx, f.Latency); err != nil {
		return nil, tool.NewToolError(f.Name(), err.Error(), "CANCELLED")
	}
	formID, _ := params["form_id"].(string)
	if formID == "" {
		return tool.Fail("missing required parameter %q", "form_id"), nil
	}
	fields, _ := params["fields"].(map[string]any)
	for key, value := range fields {
		if s, ok := value.(string); ok && s == "" {
			return tool.Fail("form %s: field %q is empty", formID, key), nil
		}
	}

	f.mu.Lock()
	f.submitted++
	receipt := fmt.Sprintf("FORM-%05d", f.submitted)
	f.mu.Unlock()

	return tool.Ok(map[string]any{"receipt": receipt, "form_id": formID}), nil
}
