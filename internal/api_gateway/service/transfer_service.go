package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
	"github.com/tenx-bank-ledger/internal/platform/messaging/producers"
)

// TransferServiceImpl implements the TransferService interface.
// producer and auditRepo are optional; the operations needing them fail
// with ErrAsyncUnavailable or ErrAuditUnavailable when they are nil.
type TransferServiceImpl struct {
	engine    Engine
	auditRepo audit.Repository
	producer  producers.MessagePublisher
	logger    *slog.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(logger *slog.Logger, engine Engine, auditRepo audit.Repository, producer producers.MessagePublisher) *TransferServiceImpl {
	return &TransferServiceImpl{
		engine:    engine,
		auditRepo: auditRepo,
		producer:  producer,
		logger:    logger,
	}
}

func (s *TransferServiceImpl) Transfer(ctx context.Context, req *transfer.Request) (*transfer.Receipt, error) {
	return s.engine.Transfer(ctx, req)
}

// SubmitTransfer publishes the request to the transfer topic, keyed by request id.
// A request id already present in the audit trail is answered from there.
func (s *TransferServiceImpl) SubmitTransfer(ctx context.Context, req *transfer.Request) (string, *audit.Entry, error) {
	if s.producer == nil {
		return "", nil, ErrAsyncUnavailable
	}

	if req.RequestID == uuid.Nil {
		req.RequestID = uuid.New()
	} else if s.auditRepo != nil {
		existing, err := s.auditRepo.GetByRequestID(ctx, req.RequestID.String())
		if err != nil {
			s.logger.Error("Failed to check for existing transfer with request id",
				"request_id", req.RequestID.String(),
				"error", err,
			)
			return "", nil, err
		}
		if existing != nil {
			s.logger.Info("Found existing transfer with request id",
				"request_id", req.RequestID.String(),
				"transaction_id", existing.TransactionID,
				"status", string(existing.Status),
			)
			return req.RequestID.String(), existing, nil
		}
	}

	key := req.RequestID.String()
	if err := s.producer.Publish(ctx, key, req); err != nil {
		s.logger.Error("Failed to publish transfer request",
			"request_id", key,
			"source_account_id", req.SourceAccountID,
			"destination_account_id", req.DestinationAccountID,
			"error", err,
		)
		return "", nil, err
	}

	s.logger.Info("Transfer request published",
		"request_id", key,
		"source_account_id", req.SourceAccountID,
		"destination_account_id", req.DestinationAccountID,
		"amount", req.Amount.String(),
	)
	return key, nil, nil
}

// GetTransferByID returns nil if the transaction has no recorded outcome
func (s *TransferServiceImpl) GetTransferByID(ctx context.Context, transactionID int64) (*audit.Entry, error) {
	if s.auditRepo == nil {
		return nil, ErrAuditUnavailable
	}

	entry, err := s.auditRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, audit.ErrEntryNotFound{}) {
			s.logger.Info("Transfer not found", "transaction_id", transactionID)
			return nil, nil
		}
		s.logger.Error("Failed to get transfer by ID", "transaction_id", transactionID, "error", err)
		return nil, err
	}
	return entry, nil
}

func (s *TransferServiceImpl) GetTransfersByAccountID(ctx context.Context, accountID int64, page, perPage int) ([]*audit.Entry, int64, error) {
	if s.auditRepo == nil {
		return nil, 0, ErrAuditUnavailable
	}

	offset := (page - 1) * perPage

	entries, err := s.auditRepo.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.auditRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
