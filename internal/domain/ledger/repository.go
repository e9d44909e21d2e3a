package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// Repository manages the append-only transaction log.
// Every method is only valid inside a unit of work.
type Repository interface {
	// NextTransactionID claims the next id. The claim is held by the
	// unit of work until it commits or rolls back.
	NextTransactionID(ctx context.Context) (int64, error)

	// Append fails with ErrDuplicateRequest when a record carrying the same
	// request id was already committed
	Append(ctx context.Context, record *Record) error

	// DeleteAll removes every record. The id sequence keeps counting.
	DeleteAll(ctx context.Context) (int64, error)
}

// ErrStorageUnavailable reports an infrastructure failure of the store.
// Nothing of the failed operation is visible to later reads.
type ErrStorageUnavailable struct {
	Op  string
	Err error
}

func (e ErrStorageUnavailable) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e ErrStorageUnavailable) Unwrap() error {
	return e.Err
}

// Is matches any ErrStorageUnavailable when the target carries no operation
func (e ErrStorageUnavailable) Is(target error) bool {
	t, ok := target.(ErrStorageUnavailable)
	if !ok {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// Unavailable wraps err as a storage failure of op
func Unavailable(op string, err error) error {
	return ErrStorageUnavailable{Op: op, Err: err}
}

// ErrDuplicateRequest reports a request whose transfer already committed
type ErrDuplicateRequest struct {
	RequestID string
}

func (e ErrDuplicateRequest) Error() string {
	return fmt.Sprintf("transfer request %s was already committed", e.RequestID)
}

// Is matches any ErrDuplicateRequest when the target carries no request id
func (e ErrDuplicateRequest) Is(target error) bool {
	t, ok := target.(ErrDuplicateRequest)
	if !ok {
		return false
	}
	return t.RequestID == "" || t.RequestID == e.RequestID
}

// ErrInvalidTable rejects a bulk-clear of an unknown relation
type ErrInvalidTable struct {
	Name string
}

func (e ErrInvalidTable) Error() string {
	return "Invalid table name. Table name either [transactions] or [accounts]"
}

// ParseTable resolves a relation name case-insensitively
func ParseTable(name string) (shared.Table, error) {
	switch {
	case strings.EqualFold(name, string(shared.TableAccounts)):
		return shared.TableAccounts, nil
	case strings.EqualFold(name, string(shared.TableTransactions)):
		return shared.TableTransactions, nil
	default:
		return "", ErrInvalidTable{Name: name}
	}
}

// ErrLockOrder reports locks requested out of ascending id order within one unit of work
type ErrLockOrder struct {
	Requested int64
	Held      int64
}

func (e ErrLockOrder) Error() string {
	return fmt.Sprintf("account %d locked after account %d", e.Requested, e.Held)
}
