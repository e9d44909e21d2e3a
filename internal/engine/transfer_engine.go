package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/domain/outbox"
	"github.com/tenx-bank-ledger/internal/domain/shared"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
	"github.com/tenx-bank-ledger/internal/platform/metrics"
)

const (
	outcomeCompleted = "completed"
	outcomeDuplicate = "duplicate"
)

// TransferEngine moves money between two accounts. Validation, both balance
// writes, the transaction record and its outbox message share one atomic update.
type TransferEngine struct {
	ledger   ledger.Ledger
	registry *AccountRegistry
	logger   *slog.Logger
	now      func() time.Time
}

func NewTransferEngine(logger *slog.Logger, l ledger.Ledger, registry *AccountRegistry) *TransferEngine {
	return &TransferEngine{
		ledger:   l,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Transfer debits the source and credits the destination.
// Same-account requests are rejected before any lookup. Missing accounts are
// reported before the balance is checked. A request id that already
// committed fails with ledger.ErrDuplicateRequest and changes nothing.
func (e *TransferEngine) Transfer(ctx context.Context, req *transfer.Request) (*transfer.Receipt, error) {
	start := time.Now()
	logger := e.logger
	if req.CorrelationID != "" {
		logger = e.logger.With("correlation_id", req.CorrelationID)
	}

	receipt, err := e.transfer(ctx, req)
	metrics.ObserveTransfer(outcomeOf(err), time.Since(start))

	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateRequest{}) {
			logger.Info("Transfer request already committed",
				"request_id", req.RequestID.String(),
				"source_account_id", req.SourceAccountID,
				"destination_account_id", req.DestinationAccountID)
			return nil, err
		}
		if _, business := transfer.FailureReasonOf(err); business {
			logger.Warn("Transfer rejected",
				"source_account_id", req.SourceAccountID,
				"destination_account_id", req.DestinationAccountID,
				"amount", req.Amount.String(),
				"error", err)
		} else {
			logger.Error("Transfer failed",
				"source_account_id", req.SourceAccountID,
				"destination_account_id", req.DestinationAccountID,
				"error", err)
		}
		return nil, err
	}

	logger.Info("Transfer committed",
		"transaction_id", receipt.TransactionID,
		"source_account_id", req.SourceAccountID,
		"destination_account_id", req.DestinationAccountID,
		"amount", req.Amount.String())
	return receipt, nil
}

func (e *TransferEngine) transfer(ctx context.Context, req *transfer.Request) (*transfer.Receipt, error) {
	if req.SourceAccountID == req.DestinationAccountID {
		return nil, transfer.ErrSameAccount{AccountID: req.SourceAccountID}
	}

	requestedAt := req.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = e.now()
	}
	requestedAt = requestedAt.UTC()

	var receipt *transfer.Receipt
	err := e.ledger.AtomicUpdate(ctx, func(uow ledger.UnitOfWork) error {
		locked, err := e.registry.WithUnitOfWork(uow).LockAccounts(ctx, req.SourceAccountID, req.DestinationAccountID)
		if err != nil {
			return err
		}

		source, sourceFound := locked[req.SourceAccountID]
		destination, destinationFound := locked[req.DestinationAccountID]
		switch {
		case !sourceFound && !destinationFound:
			return transfer.ErrBothAccountsNotFound{
				SourceAccountID:      req.SourceAccountID,
				DestinationAccountID: req.DestinationAccountID,
			}
		case !sourceFound:
			return transfer.ErrSourceNotFound{AccountID: req.SourceAccountID}
		case !destinationFound:
			return transfer.ErrDestinationNotFound{AccountID: req.DestinationAccountID}
		}

		if err := source.Debit(req.Amount); err != nil {
			return err
		}
		destination.Credit(req.Amount)
		if destination.Balance.IsNegative() {
			return transfer.ErrDestinationOverdrawn{AccountID: destination.ID}
		}

		accounts := uow.Accounts()
		if err := accounts.UpdateBalance(ctx, source.ID, source.Balance); err != nil {
			return err
		}
		if err := accounts.UpdateBalance(ctx, destination.ID, destination.Balance); err != nil {
			return err
		}

		transactions := uow.Transactions()
		transactionID, err := transactions.NextTransactionID(ctx)
		if err != nil {
			return err
		}
		record := ledger.NewTransferRecord(transactionID, source.ID, destination.ID, req.Amount, req.Currency, requestedAt)
		if req.RequestID != uuid.Nil {
			record.RequestID = req.RequestID.String()
		}
		if err := transactions.Append(ctx, record); err != nil {
			return err
		}

		message, err := outbox.NewMessage(completedEntry(req, record))
		if err != nil {
			return fmt.Errorf("failed to encode audit entry: %w", err)
		}
		if err := uow.Outbox().Create(ctx, message); err != nil {
			return err
		}

		receipt = &transfer.Receipt{TransactionID: transactionID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func completedEntry(req *transfer.Request, record *ledger.Record) *audit.Entry {
	entry := &audit.Entry{
		TransactionID:        record.TransactionID,
		Kind:                 record.Kind,
		SourceAccountID:      record.SourceAccountID,
		DestinationAccountID: record.DestinationAccountID,
		Amount:               record.Amount,
		Currency:             record.Currency,
		Status:               shared.TransferStatusCompleted,
		CorrelationID:        req.CorrelationID,
		RequestedAt:          record.CreatedAt,
	}
	if req.RequestID != uuid.Nil {
		entry.RequestID = req.RequestID.String()
	}
	return entry
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeCompleted
	}
	if errors.Is(err, ledger.ErrDuplicateRequest{}) {
		return outcomeDuplicate
	}
	reason, _ := transfer.FailureReasonOf(err)
	return strings.ToLower(string(reason))
}

// CreateAccount opens an account holding the initial balance
func (e *TransferEngine) CreateAccount(ctx context.Context, id int64, balance decimal.Decimal, currency string) (*account.Account, error) {
	acc, err := account.NewAccount(id, balance, currency)
	if err != nil {
		return nil, err
	}
	if err := e.registry.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (e *TransferEngine) GetAccount(ctx context.Context, id int64) (*account.Account, error) {
	return e.registry.Get(ctx, id)
}

func (e *TransferEngine) GetAllAccounts(ctx context.Context) ([]*account.Account, error) {
	return e.registry.GetAll(ctx)
}

// ClearTable empties the named relation. Transaction ids keep counting
// across a clear and are never reused.
func (e *TransferEngine) ClearTable(ctx context.Context, name string) (shared.Table, error) {
	table, err := ledger.ParseTable(name)
	if err != nil {
		return "", err
	}

	var deleted int64
	err = e.ledger.AtomicUpdate(ctx, func(uow ledger.UnitOfWork) error {
		var err error
		switch table {
		case shared.TableAccounts:
			deleted, err = uow.Accounts().DeleteAll(ctx)
		case shared.TableTransactions:
			deleted, err = uow.Transactions().DeleteAll(ctx)
		default:
			err = errors.New("unsupported table " + string(table))
		}
		return err
	})
	if err != nil {
		e.logger.Error("Failed to clear table", "table", table, "error", err)
		return "", err
	}

	e.logger.Info("Table cleared", "table", table, "deleted", deleted)
	return table, nil
}
