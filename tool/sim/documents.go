package sim

import (
	"context"
	"time"

	"github.com/clerkmesh/clerkmesh/tool"
)

// DocumentExtractor simulates extracting structured fields from a named
// document. Unknown documents resolve to a failed result, not a Go error.
type DocumentExtractor struct {
	Documents map[string]map[string]any
	Latency   time.Duration
}

// NewDocumentExtractor returns an extractor over a canned document set.
func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{
		Documents: map[string]map[string]any{
			"insurance_renewal.pdf": {
				"form_id":       "INS-RENEW-2026",
				"policy_number": "POL-88421",
				"holder_name":   "",
				"holder_email":  "",
				"renewal_date":  "2026-09-01",
			},
			"tax_declaration.pdf": {
				"form_id":     "TAX-DECL-2026",
				"tax_year":    "2025",
				"holder_name": "",
				"iban":        "",
			},
		},
	}
}

// Name returns the tool identifier.
func (d *DocumentExtractor) Name() string { return "document_extractor" }

// Description returns the tool description.
func (d *DocumentExtractor) Description() string {
	return "Extract structured fields from a named document"
}

// Execute extracts the fields of params["document"].
func (d *DocumentExtractor) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if err := latency(ctx, d.Latency); err != nil {
		return nil, tool.NewToolError(d.Name(), err.Error(), "CANCELLED")
	}
	name, _ := params["document"].(string)
	if name == "" {
		return tool.Fail("missing required parameter %q", "document"), nil
	}
	fields, ok := d.Documents[name]
	if !ok {
		return tool.Fail("document %q not found", name), nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return tool.Ok(map[string]any{"document": name, "fields": out}), nil
}
