// Package audit models the read-side trail of transfer outcomes that is
// projected from the transactional outbox and from rejected async requests.
package audit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// Entry records the outcome of one transfer request
type Entry struct {
	RequestID            string                 `json:"request_id,omitempty"`
	TransactionID        int64                  `json:"transaction_id,omitempty"`
	Kind                 shared.TransactionKind `json:"kind"`
	SourceAccountID      int64                  `json:"source_account_id"`
	DestinationAccountID int64                  `json:"destination_account_id"`
	Amount               decimal.Decimal        `json:"amount"`
	Currency             string                 `json:"currency"`
	Status               shared.TransferStatus  `json:"status"`
	FailureReason        string                 `json:"failure_reason,omitempty"`
	CorrelationID        string                 `json:"correlation_id,omitempty"`
	RequestedAt          time.Time              `json:"requested_at"`
	ProcessedAt          *time.Time             `json:"processed_at,omitempty"`
}

// MarkProcessed stamps the time the entry reached the audit trail
func (e *Entry) MarkProcessed(at time.Time) {
	at = at.UTC()
	e.ProcessedAt = &at
}
