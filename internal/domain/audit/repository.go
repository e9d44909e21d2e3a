package audit

import (
	"context"
	"strconv"
)

// Repository manages audit entry persistence with pagination support
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByTransactionID(ctx context.Context, transactionID int64) (*Entry, error)

	// GetByRequestID returns nil, nil when no entry carries the request id
	GetByRequestID(ctx context.Context, requestID string) (*Entry, error)

	// GetByAccountID lists entries where the account is source or destination, newest first
	GetByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID int64) (int64, error)
}

// ErrEntryNotFound indicates missing audit entry
type ErrEntryNotFound struct {
	TransactionID int64
}

func (e ErrEntryNotFound) Error() string {
	return "audit entry not found: " + strconv.FormatInt(e.TransactionID, 10)
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// A zero target matches any missing entry
	if t.TransactionID == 0 {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateEntry indicates the outcome was already recorded
type ErrDuplicateEntry struct {
	Key string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate audit entry: " + e.Key
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	return t.Key == "" || e.Key == t.Key
}
