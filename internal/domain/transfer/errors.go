package transfer

import (
	"errors"
	"fmt"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// ErrSameAccount rejects a transfer whose source is its destination
type ErrSameAccount struct {
	AccountID int64
}

func (e ErrSameAccount) Error() string {
	return fmt.Sprintf("Account ID's %d and %d are the same. Please correct either the source or destination account", e.AccountID, e.AccountID)
}

// ErrSourceNotFound rejects a transfer from an unknown account
type ErrSourceNotFound struct {
	AccountID int64
}

func (e ErrSourceNotFound) Error() string {
	return fmt.Sprintf("Account ID %d not found. Please review the source account ID.", e.AccountID)
}

// ErrDestinationNotFound rejects a transfer to an unknown account
type ErrDestinationNotFound struct {
	AccountID int64
}

func (e ErrDestinationNotFound) Error() string {
	return fmt.Sprintf("Account ID %d not found. Please review the destination account ID.", e.AccountID)
}

// ErrBothAccountsNotFound rejects a transfer between two unknown accounts
type ErrBothAccountsNotFound struct {
	SourceAccountID      int64
	DestinationAccountID int64
}

func (e ErrBothAccountsNotFound) Error() string {
	return fmt.Sprintf("Account ID's %d and %d not found. Please verify both account ID's", e.DestinationAccountID, e.SourceAccountID)
}

// ErrDestinationOverdrawn rejects a transfer that would leave the destination
// below zero, which only a negative amount can do. It matches
// account.ErrInsufficientFunds.
type ErrDestinationOverdrawn struct {
	AccountID int64
}

func (e ErrDestinationOverdrawn) Error() string {
	return "The destination balance is insufficient for this transaction"
}

func (e ErrDestinationOverdrawn) Unwrap() error {
	return account.ErrInsufficientFunds
}

// FailureReasonOf classifies a Transfer error. ok is false for errors that
// are not an expected business outcome.
func FailureReasonOf(err error) (reason shared.FailureReason, ok bool) {
	var (
		same        ErrSameAccount
		source      ErrSourceNotFound
		destination ErrDestinationNotFound
		both        ErrBothAccountsNotFound
	)

	switch {
	case errors.As(err, &same):
		return shared.FailureReasonSameAccount, true
	case errors.As(err, &source), errors.As(err, &destination), errors.As(err, &both):
		return shared.FailureReasonAccountNotFound, true
	case errors.Is(err, account.ErrInsufficientFunds):
		return shared.FailureReasonInsufficientFunds, true
	case errors.Is(err, ledger.ErrStorageUnavailable{}):
		return shared.FailureReasonStorageUnavailable, false
	default:
		return shared.FailureReasonUnknownError, false
	}
}
