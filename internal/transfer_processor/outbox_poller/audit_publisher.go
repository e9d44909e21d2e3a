package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/outbox"
	"github.com/tenx-bank-ledger/internal/domain/shared"
	"github.com/tenx-bank-ledger/internal/platform/metrics"
)

const breakerName = "audit_trail"

// ErrBreakerOpen is returned while the audit trail breaker rejects writes.
// The message stays PENDING and no attempt is counted.
var ErrBreakerOpen = errors.New("audit trail circuit breaker is open")

// AuditPublisher copies committed transfers from the outbox to the audit trail
type AuditPublisher interface {
	PublishToAudit(ctx context.Context, message *outbox.Message) error
}

type AuditPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  audit.Repository
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuditPublisher(
	cfg config.BreakerConfig,
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) *AuditPublisherImpl {
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.SetBreakerState(name, int(to))
		},
	}
	metrics.SetBreakerState(breakerName, int(gobreaker.StateClosed))

	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		now:        time.Now,
	}
}

// PublishToAudit writes the entry carried by message and marks it PROCESSED.
// An entry already present in the audit trail counts as written.
func (p *AuditPublisherImpl) PublishToAudit(ctx context.Context, message *outbox.Message) error {
	entry, err := message.AuditEntry()
	if err != nil {
		p.logger.Error("Failed to decode audit entry from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to mark undecodable outbox message", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	entry.MarkProcessed(p.now())

	duplicate := false
	_, err = p.breaker.Execute(func() (interface{}, error) {
		err := p.auditRepo.Create(ctx, entry)
		if errors.Is(err, audit.ErrDuplicateEntry{}) {
			duplicate = true
			return nil, nil
		}
		return nil, err
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ObserveAuditWrite("rejected")
		return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	case err != nil:
		metrics.ObserveAuditWrite("error")
		logger.Error("Failed to write audit entry", "transaction_id", entry.TransactionID, "error", err)
		return fmt.Errorf("failed to write audit entry for transaction %d: %w", entry.TransactionID, err)
	case duplicate:
		metrics.ObserveAuditWrite("duplicate")
		logger.Info("Audit entry already written", "transaction_id", entry.TransactionID)
	default:
		metrics.ObserveAuditWrite("ok")
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to mark outbox message as PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("audit write for transaction %d OK, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Info("Outbox message published to audit trail", "outbox_id", message.ID, "transaction_id", message.TransactionID)
	return nil
}

// BreakerState reports the current state of the audit trail breaker
func (p *AuditPublisherImpl) BreakerState() gobreaker.State {
	return p.breaker.State()
}
