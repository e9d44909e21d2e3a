// Package ledger defines the atomicity boundary over account balances and
// the transaction log. Implementations live in internal/data.
package ledger

import (
	"context"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/outbox"
)

// UnitOfWork exposes the repositories bound to one atomic update
type UnitOfWork interface {
	Accounts() account.Repository
	Transactions() Repository
	Outbox() outbox.Repository
}

// Ledger is the single place where committed state is mutated
type Ledger interface {
	// AtomicUpdate applies every write made through the unit of work as one
	// indivisible operation, or none of them when work returns an error.
	AtomicUpdate(ctx context.Context, work func(uow UnitOfWork) error) error

	// View returns repositories for reads outside any atomic update
	View() UnitOfWork
}
