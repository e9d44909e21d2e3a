package service

import (
	"context"

	"github.com/tenx-bank-ledger/internal/domain/shared"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

// ProcessingService processes transfer requests consumed from the transfer topic.
// A nil error means the message may be acknowledged.
type ProcessingService interface {
	ProcessTransfer(ctx context.Context, request *transfer.Request) error
}

// TransferExecutor runs a transfer against the ledger
type TransferExecutor interface {
	Transfer(ctx context.Context, request *transfer.Request) (*transfer.Receipt, error)
}

// TransferValidator validates transfer requests before processing
type TransferValidator interface {
	Validate(ctx context.Context, request *transfer.Request) error
	CheckIdempotency(ctx context.Context, request *transfer.Request) (bool, error)
}

// FailureRecorder records rejected transfer requests in the audit trail
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *transfer.Request, reason shared.FailureReason, cause error) error
}
