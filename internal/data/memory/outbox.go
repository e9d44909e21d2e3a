package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tenx-bank-ledger/internal/domain/outbox"
	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// OutboxRepository is a goroutine-safe in-memory outbox.Repository
type OutboxRepository struct {
	mu       sync.Mutex
	messages []*outbox.Message
	nextID   int64
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Create(_ context.Context, message *outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	message.ID = r.nextID
	clone := *message
	r.messages = append(r.messages, &clone)
	return nil
}

// GetPending returns up to limit pending messages in creation order
func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*outbox.Message
	for _, m := range r.messages {
		if len(pending) == limit {
			break
		}
		if m.Status == shared.OutboxStatusPending {
			clone := *m
			pending = append(pending, &clone)
		}
	}
	return pending, nil
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	return r.update(id, func(m *outbox.Message) {
		m.Status = status
	})
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.update(id, func(m *outbox.Message) {
		m.Attempts++
	})
}

func (r *OutboxRepository) update(id int64, apply func(m *outbox.Message)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.ID == id {
			apply(m)
			now := time.Now().UTC()
			m.LastAttemptAt = &now
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

// discardOutbox drops messages when no audit trail is configured
type discardOutbox struct{}

func (discardOutbox) Create(context.Context, *outbox.Message) error { return nil }

func (discardOutbox) GetPending(context.Context, int) ([]*outbox.Message, error) { return nil, nil }

func (discardOutbox) UpdateStatus(_ context.Context, id int64, _ shared.OutboxStatus) error {
	return outbox.ErrMessageNotFound{ID: id}
}

func (discardOutbox) IncrementAttempts(_ context.Context, id int64) error {
	return outbox.ErrMessageNotFound{ID: id}
}
