package outbox

import (
	"context"
	"fmt"

	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// Repository is the transactional outbox between the ledger and the audit trail.
// A ledger unit of work only calls Create; the poller uses the rest.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	// GetPending returns at most limit PENDING messages, oldest first
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
}

type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d not found", e.ID)
}
