package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/domain/shared"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

type ProcessingServiceImpl struct {
	executor        TransferExecutor
	validator       TransferValidator
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	executor TransferExecutor,
	validator TransferValidator,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		executor:        executor,
		validator:       validator,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessTransfer executes one async transfer request.
// Rejections are recorded and acknowledged. Infrastructure errors are returned
// so the message is redelivered.
func (s *ProcessingServiceImpl) ProcessTransfer(ctx context.Context, request *transfer.Request) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}
	requestID := request.RequestID.String()

	logger.Info("Processing transfer request",
		"request_id", requestID,
		"source_account_id", request.SourceAccountID,
		"destination_account_id", request.DestinationAccountID,
	)

	// 1. Validate the request
	if err := s.validator.Validate(ctx, request); err != nil {
		logger.Warn("Transfer request validation failed", "request_id", requestID, "error", err)
		return s.recordFailure(ctx, logger, request, shared.FailureReasonInvalidRequest, err)
	}

	// 2. Check idempotency. The audit trail lags the ledger by one poller
	// pass, so the ledger's request id index below is the final word.
	skip, err := s.validator.CheckIdempotency(ctx, request)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	// 3. Execute against the ledger
	receipt, err := s.executor.Transfer(ctx, request)
	if errors.Is(err, ledger.ErrDuplicateRequest{}) {
		logger.Info("Transfer request already committed, skipping", "request_id", requestID)
		return nil
	}
	if err != nil {
		reason, business := transfer.FailureReasonOf(err)
		if !business {
			logger.Error("Transfer request failed, leaving it for redelivery", "request_id", requestID, "error", err)
			return fmt.Errorf("transfer request %s failed: %w", requestID, err)
		}
		return s.recordFailure(ctx, logger, request, reason, err)
	}

	logger.Info("Transfer request committed", "request_id", requestID, "transaction_id", receipt.TransactionID)
	return nil
}

func (s *ProcessingServiceImpl) recordFailure(ctx context.Context, logger *slog.Logger, request *transfer.Request, reason shared.FailureReason, cause error) error {
	if err := s.failureRecorder.RecordFailure(ctx, request, reason, cause); err != nil {
		logger.Error("Failed to record transfer failure",
			"request_id", request.RequestID.String(),
			"reason", reason,
			"error", err,
		)
		return fmt.Errorf("failed to record %s for transfer request %s: %w", reason, request.RequestID, err)
	}
	return nil
}
