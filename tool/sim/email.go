package sim

import (
	"context"
	"time"

	"github.com/clerkmesh/clerkmesh/tool"
)

// Email is one simulated inbox entry.
type Email struct {
	From    string
	Subject string
	Body    string
	Date    string // RFC 3339
	IsBill  bool
	Vendor  string
	Amount  float64
	DueDate string // YYYY-MM-DD
}

// EmailScanner simulates scanning a mailbox for actionable mail. The default
// inbox is fixed so runs are reproducible; tests may substitute their own.
type EmailScanner struct {
	Inbox   []Email
	Latency time.Duration
}

// NewEmailScanner returns a scanner over the canned default inbox.
func NewEmailScanner() *EmailScanner {
	return &EmailScanner{Inbox: defaultInbox()}
}

// Name returns the tool identifier.
func (s *EmailScanner) Name() string { return "email_scanner" }

// Description returns the tool description.
func (s *EmailScanner) Description() string {
	return "Scan the inbox and return messages, flagging bill-like mail"
}

// Execute returns the inbox as key/value rows under "emails". An optional
// "bills_only" boolean parameter filters to bill-like mail.
func (s *EmailScanner) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if err := latency(ctx, s.Latency); err != nil {
		return nil, tool.NewToolError(s.Name(), err.Error(), "CANCELLED")
	}
	billsOnly, _ := params["bills_only"].(bool)
	emails := make([]map[string]any, 0, len(s.Inbox))
	for _, e := range s.Inbox {
		if billsOnly && !e.IsBill {
			continue
		}
		emails = append(emails, map[string]any{
			"from":     e.From,
			"subject":  e.Subject,
			"body":     e.Body,
			"date":     e.Date,
			"is_bill":  e.IsBill,
			"vendor":   e.Vendor,
			"amount":   e.Amount,
			"due_date": e.DueDate,
		})
	}
	return tool.Ok(map[string]any{"emails": emails, "total": len(emails)}), nil
}

func defaultInbox() []Email {
	return []Email{
		{
			From:    "billing@citypower.example",
			Subject: "Your electricity bill is ready",
			Body:    "Your electricity statement for this month is 84.50 due on the 15th.",
			Date:    "2026-08-02T09:12:00Z",
			IsBill:  true,
			Vendor:  "City Power",
			Amount:  84.50,
			DueDate: "2026-08-15",
		},
		{
			From:    "no-reply@fibernet.example",
			Subject: "Invoice: internet service",
			Body:    "Internet service invoice, amount 59.99, due on the 15th.",
			Date:    "2026-08-03T14:40:00Z",
			IsBill:  true,
			Vendor:  "FiberNet",
			Amount:  59.99,
			DueDate: "2026-08-15",
		},
		{
			From:    "newsletter@cooking.example",
			Subject: "Five easy weeknight dinners",
			Body:    "This week's recipes...",
			Date:    "2026-08-04T08:00:00Z",
		},
		{
			From:    "accounts@aquaworks.example",
			Subject: "Water utility statement",
			Body:    "Water usage statement, 32.10 due end of month.",
			Date:    "2026-08-05T11:25:00Z",
			IsBill:  true,
			Vendor:  "AquaWorks",
			Amount:  32.10,
			DueDate: "2026-08-31",
		},
	}
}
