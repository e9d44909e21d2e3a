package outbox

import (
	"encoding/json"
	"time"

	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// Message carries a committed transfer to the audit trail
type Message struct {
	ID            int64               `json:"id"`
	TransactionID int64               `json:"transaction_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage encodes entry as a PENDING message for the audit trail
func NewMessage(entry *audit.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: entry.TransactionID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// LastAttempt reports whether a failure now uses up the last of maxAttempts.
// Attempts counts the failures recorded before this one.
func (m *Message) LastAttempt(maxAttempts int) bool {
	return m.Attempts+1 >= maxAttempts
}

// AuditEntry decodes the audit entry carried in the payload
func (m *Message) AuditEntry() (*audit.Entry, error) {
	var entry audit.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
