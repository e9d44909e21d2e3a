package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
	"github.com/tenx-bank-ledger/internal/transfer_processor/service"
)

var errMissingRequestID = errors.New("transfer request carries no request id")

type TransferValidatorImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewTransferValidator checks requests against the audit trail; a nil
// auditRepo disables the idempotency check.
func NewTransferValidator(auditRepo audit.Repository, logger *slog.Logger) service.TransferValidator {
	return &TransferValidatorImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Validate rejects messages that cannot be tracked. Amount and currency are
// passed to the engine as given.
func (v *TransferValidatorImpl) Validate(_ context.Context, request *transfer.Request) error {
	if request.RequestID == uuid.Nil {
		return errMissingRequestID
	}
	return nil
}

// CheckIdempotency reports whether the request already has an outcome in the audit trail
func (v *TransferValidatorImpl) CheckIdempotency(ctx context.Context, request *transfer.Request) (bool, error) {
	if v.auditRepo == nil {
		return false, nil
	}

	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	existing, err := v.auditRepo.GetByRequestID(ctx, request.RequestID.String())
	if err != nil {
		logger.Error("Failed to check audit trail for idempotency", "request_id", request.RequestID.String(), "error", err)
		return false, fmt.Errorf("idempotency check failed for transfer request %s: %w", request.RequestID, err)
	}
	if existing == nil {
		return false, nil
	}

	logger.Info("Transfer request already processed",
		"request_id", request.RequestID.String(),
		"status", existing.Status,
		"transaction_id", existing.TransactionID,
	)
	return true, nil
}
