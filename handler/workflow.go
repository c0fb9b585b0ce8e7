package handler

import (
	"context"
	"fmt"
	"sort"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/tool"
)

// WorkflowHandler is the multi-step sequential variant for document/form
// work: extract fields from a document, resolve missing values from memory
// and previously provided input, then submit the filled form.
//
// When a required field cannot be resolved the handler returns a non-terminal
// awaiting_input outcome and emits an input_required query; the work item
// stays in progress. Input arrives as an input_provided message delivered to
// this handler's inbox, correlated by work item id, and is consumed on the
// next execution of the same item.
type WorkflowHandler struct {
	BaseHandler
	extractor tool.Tool
	filler    tool.Tool
}

// NewWorkflowHandler constructs the form workflow for the form_fill category.
func NewWorkflowHandler(extractor, filler tool.Tool, deps Deps) *WorkflowHandler {
	return &WorkflowHandler{
		BaseHandler: NewBaseHandler(
			"form_workflow",
			core.CategoryFormFill,
			[]core.MemoryType{core.MemoryPreference, core.MemoryContact, core.MemoryHistory},
			deps,
		),
		extractor: extractor,
		filler:    filler,
	}
}

// Execute runs the extract -> resolve -> submit pipeline for the item's
// document (metadata key "document").
func (h *WorkflowHandler) Execute(ctx context.Context, item *core.WorkItem, sessionID string) (*core.Result, error) {
	document, _ := item.Metadata["document"].(string)
	if document == "" {
		return &core.Result{Outcome: core.OutcomeFailed, Summary: "work item has no document to process"}, nil
	}

	res, err := h.extractor.Execute(ctx, map[string]any{"document": document})
	if err != nil {
		return nil, fmt.Errorf("extractor tool: %w", err)
	}
	if !res.Success {
		return &core.Result{Outcome: core.OutcomeFailed, Summary: "extraction failed: " + res.Error}, nil
	}
	fields, _ := res.Data["fields"].(map[string]any)
	formID, _ := fields["form_id"].(string)
	if formID == "" {
		formID = document
	}

	// Previously provided answers take precedence over memory lookups.
	provided := map[string]any{}
	for _, msg := range h.ConsumeInbox(core.MessageInputProvided, item.ID) {
		if answers, ok := msg.Payload["fields"].(map[string]any); ok {
			for k, v := range answers {
				provided[k] = v
			}
		}
	}

	missing := h.resolveFields(fields, provided)
	if len(missing) > 0 {
		h.SendCorrelated(core.MessageInputRequired, core.DispatcherAddress, item.ID, map[string]any{
			"document": document,
			"missing":  missing,
		})
		return &core.Result{
			Outcome: core.OutcomeAwaitingInput,
			Summary: fmt.Sprintf("form %s awaiting input for %d fields", formID, len(missing)),
			Data:    map[string]any{"missing": missing},
		}, nil
	}

	fill, err := h.filler.Execute(ctx, map[string]any{"form_id": formID, "fields": fields})
	if err != nil {
		return nil, fmt.Errorf("form filler tool: %w", err)
	}
	if !fill.Success {
		return &core.Result{Outcome: core.OutcomeFailed, Summary: "submission failed: " + fill.Error}, nil
	}
	receipt, _ := fill.Data["receipt"].(string)

	if _, err := h.Memory().Store(core.MemoryHistory,
		fmt.Sprintf("Submitted form %s from %s, receipt %s", formID, document, receipt),
		map[string]any{"form_id": formID, "receipt": receipt},
	); err != nil {
		return nil, fmt.Errorf("store submission history: %w", err)
	}
	h.SendCorrelated(core.MessageTaskCompleted, core.DispatcherAddress, item.ID, map[string]any{
		"form_id": formID,
		"receipt": receipt,
	})

	return &core.Result{
		Outcome: core.OutcomeCompleted,
		Summary: fmt.Sprintf("form %s submitted, receipt %s", formID, receipt),
		Data:    map[string]any{"receipt": receipt, "form_id": formID},
	}, nil
}

// resolveFields fills empty string fields from provided answers first, then
// from metadata of the handler's compacted memory context. It returns the
// sorted names of fields that remain unresolved.
func (h *WorkflowHandler) resolveFields(fields, provided map[string]any) []string {
	var candidates []*core.MemoryRecord
	var missing []string
	for key, value := range fields {
		s, ok := value.(string)
		if !ok || s != "" {
			continue
		}
		if v, ok := provided[key]; ok {
			fields[key] = v
			continue
		}
		if candidates == nil {
			candidates = h.Memory().CompactContextForHandler(h.Name(), DefaultSnapshotMemories)
		}
		if v, ok := lookupField(candidates, key); ok {
			fields[key] = v
			continue
		}
		missing = append(missing, key)
	}
	sort.Strings(missing)
	return missing
}

func lookupField(recs []*core.MemoryRecord, key string) (any, bool) {
	for _, rec := range recs {
		if v, ok := rec.Metadata[key]; ok {
			return v, true
		}
	}
	return nil, false
}
