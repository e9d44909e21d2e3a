// Package engine holds the transfer rules on top of the ledger: the account
// registry and the transfer engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
)

var errUnbound = errors.New("account registry is not bound to a unit of work")

// AccountRegistry answers existence and balance questions about accounts.
// A registry returned by WithUnitOfWork reads through that unit of work and
// may lock accounts; the root registry reads committed state.
type AccountRegistry struct {
	ledger   ledger.Ledger
	accounts account.Repository
	bound    bool
	logger   *slog.Logger
}

func NewAccountRegistry(logger *slog.Logger, l ledger.Ledger) *AccountRegistry {
	return &AccountRegistry{
		ledger:   l,
		accounts: l.View().Accounts(),
		logger:   logger,
	}
}

// WithUnitOfWork returns a registry bound to uow
func (r *AccountRegistry) WithUnitOfWork(uow ledger.UnitOfWork) *AccountRegistry {
	return &AccountRegistry{
		ledger:   r.ledger,
		accounts: uow.Accounts(),
		bound:    true,
		logger:   r.logger,
	}
}

func (r *AccountRegistry) Exists(ctx context.Context, id int64) (bool, error) {
	return r.accounts.Exists(ctx, id)
}

// Create inserts acc in its own atomic update. The existence check and the
// insert commit together; losing an insert race surfaces as ErrAccountAlreadyExists.
func (r *AccountRegistry) Create(ctx context.Context, acc *account.Account) error {
	err := r.ledger.AtomicUpdate(ctx, func(uow ledger.UnitOfWork) error {
		accounts := uow.Accounts()

		exists, err := accounts.Exists(ctx, acc.ID)
		if err != nil {
			return err
		}
		if exists {
			return account.ErrAccountAlreadyExists{AccountID: acc.ID}
		}
		return accounts.Create(ctx, acc)
	})
	if err != nil {
		if errors.Is(err, account.ErrAccountAlreadyExists{}) {
			r.logger.Warn("Account already exists", "account_id", acc.ID)
		} else {
			r.logger.Error("Failed to create account", "account_id", acc.ID, "error", err)
		}
		return err
	}

	r.logger.Info("Account created", "account_id", acc.ID, "balance", acc.Balance.String(), "currency", acc.Currency)
	return nil
}

func (r *AccountRegistry) Get(ctx context.Context, id int64) (*account.Account, error) {
	return r.accounts.GetByID(ctx, id)
}

// GetAll returns every account in insertion order
func (r *AccountRegistry) GetAll(ctx context.Context) ([]*account.Account, error) {
	return r.accounts.GetAll(ctx)
}

// LockAccounts locks ids in ascending order for the rest of the bound unit
// of work and returns the accounts that exist.
func (r *AccountRegistry) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*account.Account, error) {
	if !r.bound {
		return nil, errUnbound
	}

	locked, err := r.accounts.LockForUpdate(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts %v: %w", ids, err)
	}
	return locked, nil
}
