package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/shared"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
	"github.com/tenx-bank-ledger/internal/transfer_processor/service"
)

type FailureRecorderImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
	now       func() time.Time
}

// NewFailureRecorder writes FAILED entries to auditRepo. With a nil auditRepo
// rejections are only logged.
func NewFailureRecorder(auditRepo audit.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		auditRepo: auditRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordFailure stores the rejection of a transfer request. A request that
// was already recorded is not an error.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *transfer.Request, reason shared.FailureReason, cause error) error {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Recording rejected transfer request",
		"request_id", request.RequestID.String(),
		"reason", reason,
		"cause", cause,
	)
	if r.auditRepo == nil {
		return nil
	}

	if err := r.auditRepo.Create(ctx, r.failedEntry(request, reason)); err != nil {
		if errors.Is(err, audit.ErrDuplicateEntry{}) {
			logger.Info("Rejected transfer request already recorded", "request_id", request.RequestID.String())
			return nil
		}
		return err
	}
	return nil
}

func (r *FailureRecorderImpl) failedEntry(request *transfer.Request, reason shared.FailureReason) *audit.Entry {
	now := r.now().UTC()
	requestedAt := request.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = now
	}

	entry := &audit.Entry{
		Kind:                 shared.TransactionKindTransfer,
		SourceAccountID:      request.SourceAccountID,
		DestinationAccountID: request.DestinationAccountID,
		Amount:               request.Amount,
		Currency:             request.Currency,
		Status:               shared.TransferStatusFailed,
		FailureReason:        string(reason),
		CorrelationID:        request.CorrelationID,
		RequestedAt:          requestedAt.UTC(),
	}
	if request.RequestID != uuid.Nil {
		entry.RequestID = request.RequestID.String()
	}
	entry.MarkProcessed(now)
	return entry
}
