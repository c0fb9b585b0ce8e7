package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clerkmesh/clerkmesh/tool"
)

// Interface compliance (compile-time assertions)
var (
	_ tool.Tool = (*EmailScanner)(nil)
	_ tool.Tool = (*DocumentExtractor)(nil)
	_ tool.Tool = (*PaymentGateway)(nil)
	_ tool.Tool = (*FormFiller)(nil)
)

func TestEmailScanner_BillsOnly(t *testing.T) {
	scanner := NewEmailScanner()

	res, err := scanner.Execute(context.Background(), map[string]any{"bills_only": true})
	require.NoError(t, err)
	require.True(t, res.Success)

	emails, ok := res.Data["emails"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, emails, 3)
	for _, e := range emails {
		assert.Equal(t, true, e["is_bill"])
		assert.NotEmpty(t, e["vendor"])
	}

	// Without the filter the newsletter shows up too.
	res, err = scanner.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Data["total"])
}

func TestEmailScanner_CancelledContext(t *testing.T) {
	scanner := NewEmailScanner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.Execute(ctx, nil)
	assert.Error(t, err)
}

func TestDocumentExtractor(t *testing.T) {
	extractor := NewDocumentExtractor()

	res, err := extractor.Execute(context.Background(), map[string]any{"document": "insurance_renewal.pdf"})
	require.NoError(t, err)
	require.True(t, res.Success)

	fields, ok := res.Data["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INS-RENEW-2026", fields["form_id"])
	assert.Equal(t, "", fields["holder_name"])

	// Returned fields are a copy of the canned document.
	fields["form_id"] = "mutated"
	res, _ = extractor.Execute(context.Background(), map[string]any{"document": "insurance_renewal.pdf"})
	assert.Equal(t, "INS-RENEW-2026", res.Data["fields"].(map[string]any)["form_id"])

	res, err = extractor.Execute(context.Background(), map[string]any{"document": "unknown.pdf"})
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = extractor.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestPaymentGateway(t *testing.T) {
	gateway := NewPaymentGateway()
	gateway.Decline["Shady Corp"] = true

	res, err := gateway.Execute(context.Background(), map[string]any{"vendor": "City Power", "amount": 84.50})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "PAY-00001", res.Data["confirmation"])

	res, _ = gateway.Execute(context.Background(), map[string]any{"vendor": "FiberNet", "amount": 59.99})
	assert.Equal(t, "PAY-00002", res.Data["confirmation"])

	// Declined vendors fail without consuming a confirmation number.
	res, err = gateway.Execute(context.Background(), map[string]any{"vendor": "Shady Corp", "amount": 10.0})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "declined")

	res, _ = gateway.Execute(context.Background(), map[string]any{"vendor": "AquaWorks", "amount": 32.10})
	assert.Equal(t, "PAY-00003", res.Data["confirmation"])

	// Missing vendor and non-positive amounts are failed results.
	res, _ = gateway.Execute(context.Background(), map[string]any{"amount": 5.0})
	assert.False(t, res.Success)
	res, _ = gateway.Execute(context.Background(), map[string]any{"vendor": "City Power", "amount": 0.0})
	assert.False(t, res.Success)
}

func TestFormFiller(t *testing.T) {
	filler := NewFormFiller()

	res, err := filler.Execute(context.Background(), map[string]any{
		"form_id": "INS-RENEW-2026",
		"fields":  map[string]any{"holder_name": "Alex Doe", "holder_email": "alex@example.com"},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "FORM-00001", res.Data["receipt"])

	// Empty string fields are rejected.
	res, err = filler.Execute(context.Background(), map[string]any{
		"form_id": "INS-RENEW-2026",
		"fields":  map[string]any{"holder_name": ""},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, `"holder_name"`)

	res, _ = filler.Execute(context.Background(), map[string]any{"fields": map[string]any{}})
	assert.False(t, res.Success)
}
