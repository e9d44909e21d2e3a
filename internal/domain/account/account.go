package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CreatedAtLayout is the timestamp layout of the legacy account status API
const CreatedAtLayout = "2006-01-02 15:04:05"

// Common errors
var (
	ErrInsufficientFunds = errors.New("The source balance is insufficient for this transaction")
	ErrNegativeBalance   = errors.New("initial balance cannot be negative")
)

// Account represents a bank account keyed by a caller supplied id
type Account struct {
	ID        int64           `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewAccount creates an account holding the opening balance.
// The currency tag is stored as given, empty included.
func NewAccount(id int64, balance decimal.Decimal, currency string) (*Account, error) {
	if balance.IsNegative() {
		return nil, ErrNegativeBalance
	}

	return &Account{
		ID:        id,
		Balance:   balance,
		Currency:  currency,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}, nil
}

// Debit subtracts amount from the balance. The balance is left untouched
// when the result would be negative.
func (a *Account) Debit(amount decimal.Decimal) error {
	next := a.Balance.Sub(amount)
	if next.IsNegative() {
		return ErrInsufficientFunds
	}
	a.Balance = next
	return nil
}

// Credit adds amount to the balance
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}

// CanDebit reports whether amount can be withdrawn without going negative
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return !a.Balance.Sub(amount).IsNegative()
}
