package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tenx-bank-ledger/internal/domain/transfer"
	"github.com/tenx-bank-ledger/internal/platform/messaging/producers"
	"github.com/tenx-bank-ledger/internal/transfer_processor/service"
)

// TransferEventHandler feeds transfer requests read from Kafka into the processing service
type TransferEventHandler struct {
	processingService service.ProcessingService
	dlq               producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewTransferEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	dlq producers.DeadLetterPublisher,
) *TransferEventHandler {
	return &TransferEventHandler{
		processingService: processingService,
		dlq:               dlq,
		logger:            logger,
	}
}

// HandleMessage returns nil when the offset may be committed. A payload that
// cannot be decoded is parked on the DLQ; without one it is redelivered.
func (h *TransferEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request transfer.Request
	if err := json.Unmarshal(value, &request); err != nil {
		return h.deadLetter(ctx, key, value, err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received transfer request",
		"request_id", request.RequestID.String(),
		"source_account_id", request.SourceAccountID,
		"destination_account_id", request.DestinationAccountID,
		"amount", request.Amount.String(),
	)

	if err := h.processingService.ProcessTransfer(ctx, &request); err != nil {
		logger.Error("Failed to process transfer request",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return fmt.Errorf("processing transfer request %s failed: %w", request.RequestID.String(), err)
	}

	logger.Info("Transfer request processed", "request_id", request.RequestID.String())
	return nil
}

func (h *TransferEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	h.logger.Error("Failed to decode transfer request from Kafka message",
		"error", cause,
		"message_key", string(key),
	)
	if h.dlq == nil {
		return fmt.Errorf("failed to decode transfer request: %w", cause)
	}

	reason := fmt.Sprintf("undecodable transfer request: %s", cause.Error())
	if err := h.dlq.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish undecodable message to DLQ",
			"dlq_error", err,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to decode transfer request: %w", cause)
	}

	h.logger.Info("Parked undecodable message on DLQ", "message_key", string(key))
	return nil
}
