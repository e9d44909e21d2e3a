package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/shared"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

var (
	// ErrAsyncUnavailable is returned when no transfer request producer is configured
	ErrAsyncUnavailable = errors.New("asynchronous transfers are not enabled")

	// ErrAuditUnavailable is returned when no audit trail is configured
	ErrAuditUnavailable = errors.New("transfer history is not enabled")
)

// Engine is the transfer engine the gateway delegates to
type Engine interface {
	Transfer(ctx context.Context, req *transfer.Request) (*transfer.Receipt, error)
	CreateAccount(ctx context.Context, id int64, balance decimal.Decimal, currency string) (*account.Account, error)
	GetAccount(ctx context.Context, id int64) (*account.Account, error)
	GetAllAccounts(ctx context.Context) ([]*account.Account, error)
	ClearTable(ctx context.Context, name string) (shared.Table, error)
}

// AccountService defines the interface for account operations
type AccountService interface {
	// CreateAccount returns ErrAccountAlreadyExists if the id is taken
	CreateAccount(ctx context.Context, id int64, initialBalance decimal.Decimal, currency string) (*account.Account, error)

	// GetAccountByID returns ErrAccountNotFound if the account doesn't exist
	GetAccountByID(ctx context.Context, id int64) (*account.Account, error)

	// ListAccounts returns every account in creation order
	ListAccounts(ctx context.Context) ([]*account.Account, error)
}

// TransferService defines the interface for transfer operations
type TransferService interface {
	// Transfer executes the request synchronously
	Transfer(ctx context.Context, req *transfer.Request) (*transfer.Receipt, error)

	// SubmitTransfer queues the request for the transfer processor.
	// Returns the request id, and the recorded outcome if the request id was already processed.
	SubmitTransfer(ctx context.Context, req *transfer.Request) (string, *audit.Entry, error)

	// GetTransferByID returns nil if no outcome is recorded for the transaction
	GetTransferByID(ctx context.Context, transactionID int64) (*audit.Entry, error)

	// GetTransfersByAccountID returns one page of outcomes and the total count
	GetTransfersByAccountID(ctx context.Context, accountID int64, page, perPage int) ([]*audit.Entry, int64, error)
}

// AdminService defines destructive maintenance operations
type AdminService interface {
	ClearTable(ctx context.Context, name string) (shared.Table, error)
}
