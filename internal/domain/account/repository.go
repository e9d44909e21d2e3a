package account

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations.
// Mutating methods are only valid inside a ledger unit of work.
type Repository interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetAll returns every account in insertion order
	GetAll(ctx context.Context) ([]*Account, error)

	// LockForUpdate acquires exclusive locks on the given accounts in ascending
	// id order and returns the ones that exist. Missing ids are absent from the map.
	LockForUpdate(ctx context.Context, ids ...int64) (map[int64]*Account, error)

	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	DeleteAll(ctx context.Context) (int64, error)
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID int64
}

func (e ErrAccountNotFound) Error() string {
	return fmt.Sprintf("Error the account with ID %d does not exist.", e.AccountID)
}

// Is matches any ErrAccountNotFound when the target carries no account id
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == 0 || t.AccountID == e.AccountID
}

// ErrAccountAlreadyExists indicates an id uniqueness violation
type ErrAccountAlreadyExists struct {
	AccountID int64
}

func (e ErrAccountAlreadyExists) Error() string {
	return fmt.Sprintf("Account %d already exists.", e.AccountID)
}

// Is matches any ErrAccountAlreadyExists when the target carries no account id
func (e ErrAccountAlreadyExists) Is(target error) bool {
	t, ok := target.(ErrAccountAlreadyExists)
	if !ok {
		return false
	}
	return t.AccountID == 0 || t.AccountID == e.AccountID
}
