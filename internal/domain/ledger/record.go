package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// Record is an immutable entry of the transaction log
type Record struct {
	TransactionID        int64                  `json:"transaction_id"`
	Kind                 shared.TransactionKind `json:"kind"`
	SourceAccountID      int64                  `json:"source_account_id"`
	DestinationAccountID int64                  `json:"destination_account_id"`
	Amount               decimal.Decimal        `json:"amount"`
	Currency             string                 `json:"currency"`
	RequestID            string                 `json:"request_id,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

// NewTransferRecord labels a committed transfer with its transaction id.
// createdAt is the time the transfer was requested.
func NewTransferRecord(transactionID, sourceID, destinationID int64, amount decimal.Decimal, currency string, createdAt time.Time) *Record {
	return &Record{
		TransactionID:        transactionID,
		Kind:                 shared.TransactionKindTransfer,
		SourceAccountID:      sourceID,
		DestinationAccountID: destinationID,
		Amount:               amount,
		Currency:             currency,
		CreatedAt:            createdAt,
	}
}
