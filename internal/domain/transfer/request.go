package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request moves Amount from the source to the destination account.
// It is also the Kafka message of the async transfer topic.
type Request struct {
	RequestID            uuid.UUID       `json:"request_id"`
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	RequestedAt          time.Time       `json:"requested_at"`
	CorrelationID        string          `json:"correlation_id,omitempty"`
}

// Receipt confirms a committed transfer
type Receipt struct {
	TransactionID int64 `json:"transaction_id"`
}
