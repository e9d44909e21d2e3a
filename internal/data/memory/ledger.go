// Package memory provides an in-process ledger with the same atomicity and
// locking guarantees as the PostgreSQL one, for tests and single-node runs.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/domain/outbox"
)

var (
	errReadOnly     = errors.New("write outside an atomic update")
	errNotLocked    = errors.New("account must be locked before its balance is updated")
	errCounterFirst = errors.New("account locks must be taken before claiming a transaction id")
)

// Ledger keeps committed state behind mu. Writers hold per-account locks,
// taken in ascending id order, and a counter lock taken last; their writes
// are staged and published in one step at commit.
type Ledger struct {
	logger *slog.Logger

	mu           sync.RWMutex
	accounts     map[int64]*account.Account
	order        []int64
	transactions []*ledger.Record
	requestIDs   map[string]struct{}
	lastTxID     int64

	locksMu   sync.Mutex
	acctLocks map[int64]*accountLock
	counter   chan struct{}

	outbox outbox.Repository
}

type Option func(*Ledger)

// WithOutbox publishes staged outbox messages to repo on commit
func WithOutbox(repo outbox.Repository) Option {
	return func(l *Ledger) {
		l.outbox = repo
	}
}

func NewLedger(logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		logger:     logger,
		accounts:   make(map[int64]*account.Account),
		requestIDs: make(map[string]struct{}),
		acctLocks:  make(map[int64]*accountLock),
		counter:    make(chan struct{}, 1),
		outbox:     discardOutbox{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) AtomicUpdate(ctx context.Context, work func(uow ledger.UnitOfWork) error) error {
	uow := newUnitOfWork(l)
	defer uow.release()

	if err := work(uow); err != nil {
		return err
	}
	return uow.commit(ctx)
}

// View reads committed state only
func (l *Ledger) View() ledger.UnitOfWork {
	return view{l: l}
}

// Ping always succeeds
func (l *Ledger) Ping(context.Context) error {
	return nil
}

// accountLock is a per-account mutex. refs counts the units of work holding
// or waiting on it; the entry is dropped when it reaches zero.
type accountLock struct {
	ch   chan struct{}
	refs int
}

func (l *Ledger) retainLock(id int64) chan struct{} {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()

	lock, ok := l.acctLocks[id]
	if !ok {
		lock = &accountLock{ch: make(chan struct{}, 1)}
		l.acctLocks[id] = lock
	}
	lock.refs++
	return lock.ch
}

func (l *Ledger) dropLock(id int64) {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	l.dropLockLocked(id)
}

// unlock releases a held account lock and drops the caller's reference
func (l *Ledger) unlock(id int64) {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()

	<-l.acctLocks[id].ch
	l.dropLockLocked(id)
}

func (l *Ledger) dropLockLocked(id int64) {
	lock := l.acctLocks[id]
	lock.refs--
	if lock.refs == 0 {
		delete(l.acctLocks, id)
	}
}

func acquire(ctx context.Context, lock chan struct{}) error {
	select {
	case lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Ledger) committedAccount(id int64) (*account.Account, bool) {
	acc, ok := l.accounts[id]
	if !ok {
		return nil, false
	}
	clone := *acc
	return &clone, true
}

type view struct {
	l *Ledger
}

func (v view) Accounts() account.Repository    { return &accountStore{l: v.l} }
func (v view) Transactions() ledger.Repository { return &transactionLog{} }
func (v view) Outbox() outbox.Repository       { return v.l.outbox }
