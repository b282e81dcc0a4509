package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceCreatedEvent is the payload published when an invoice is created.
// Publication is fire-and-forget: the engine never awaits acknowledgment and
// a publish failure does not fail the create operation.
type InvoiceCreatedEvent struct {
	EventID       string          `json:"eventId"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlationId"`
	InvoiceID     string          `json:"invoiceId"`
	CustomerSiret string          `json:"customerSiret,omitempty"`
	TotalTTC      decimal.Decimal `json:"totalTTC"`
	DueDate       time.Time       `json:"dueDate"`
}
