package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/domain/outbox"
	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// Poller drains PENDING outbox messages into the audit trail
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        AuditPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher AuditPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error processing pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages")
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for i, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := p.publisher.PublishToAudit(ctx, msg)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrBreakerOpen) {
			p.logger.Warn("Audit trail unavailable, deferring remaining outbox messages",
				"remaining", len(messages)-i, "outbox_id", msg.ID)
			return nil
		}

		p.logger.Error("Failed to publish outbox message",
			"outbox_id", msg.ID, "transaction_id", msg.TransactionID, "attempts", msg.Attempts, "error", err,
		)
		p.recordFailedAttempt(ctx, msg)
	}
	return nil
}

func (p *Poller) recordFailedAttempt(ctx context.Context, msg *outbox.Message) {
	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		p.logger.Error("Failed to increment outbox attempts", "outbox_id", msg.ID, "error", err)
		return
	}
	if !msg.LastAttempt(p.maxRetryAttempts) {
		return
	}

	p.logger.Warn("Max retry attempts reached, marking outbox message as FAILED_TO_PUBLISH",
		"outbox_id", msg.ID, "transaction_id", msg.TransactionID, "attempts", msg.Attempts+1,
	)
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		p.logger.Error("Failed to mark outbox message as FAILED_TO_PUBLISH", "outbox_id", msg.ID, "error", err)
	}
}
