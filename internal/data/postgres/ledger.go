package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/domain/outbox"
	"github.com/tenx-bank-ledger/internal/platform/metrics"
	"github.com/tenx-bank-ledger/internal/platform/persistence"
)

var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Ledger runs atomic updates as READ COMMITTED transactions. Row locks taken
// in ascending id order serialize conflicting transfers; serialization
// failures and deadlocks are replayed with exponential backoff.
type Ledger struct {
	pool         persistence.Pool
	logger       *slog.Logger
	accounts     *AccountRepository
	transactions *TransactionRepository
	outbox       *OutboxRepository
	maxRetries   int
	backoff      time.Duration
	txTimeout    time.Duration
}

func NewLedger(logger *slog.Logger, pool persistence.Pool, cfg config.LedgerConfig) *Ledger {
	return &Ledger{
		pool:         pool,
		logger:       logger,
		accounts:     NewAccountRepository(logger, pool),
		transactions: NewTransactionRepository(logger, pool),
		outbox:       NewOutboxRepository(logger, pool),
		maxRetries:   cfg.MaxRetries,
		backoff:      cfg.RetryBackoff,
		txTimeout:    cfg.TxTimeout,
	}
}

func (l *Ledger) AtomicUpdate(ctx context.Context, work func(uow ledger.UnitOfWork) error) error {
	for attempt := 0; ; attempt++ {
		workFailed, err := l.runOnce(ctx, work)
		if err == nil {
			return nil
		}

		if !persistence.IsRetryable(err) || attempt >= l.maxRetries {
			if workFailed {
				return err
			}
			return ledger.Unavailable("run ledger transaction", err)
		}

		metrics.IncLedgerRetry()
		delay := l.backoff << attempt
		l.logger.Warn("Retrying ledger transaction",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ledger.Unavailable("run ledger transaction", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// runOnce reports whether a returned error came from work rather than begin or commit
func (l *Ledger) runOnce(ctx context.Context, work func(uow ledger.UnitOfWork) error) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, l.txTimeout)
	defer cancel()

	workFailed := false
	err := persistence.RunInTx(attemptCtx, l.pool, txOptions, func(tx pgx.Tx) error {
		if err := work(l.bind(tx)); err != nil {
			workFailed = true
			return err
		}
		return nil
	})
	return workFailed, err
}

func (l *Ledger) bind(tx pgx.Tx) *unitOfWork {
	return &unitOfWork{
		accounts:     l.accounts.WithTx(tx),
		transactions: l.transactions.WithTx(tx),
		outbox:       l.outbox.WithTx(tx),
	}
}

// View returns pool-bound repositories; reads see only committed state
func (l *Ledger) View() ledger.UnitOfWork {
	return &unitOfWork{
		accounts:     l.accounts,
		transactions: l.transactions,
		outbox:       l.outbox,
	}
}

// Ping checks the database is reachable
func (l *Ledger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

type unitOfWork struct {
	accounts     *AccountRepository
	transactions *TransactionRepository
	outbox       *OutboxRepository
}

func (u *unitOfWork) Accounts() account.Repository    { return u.accounts }
func (u *unitOfWork) Transactions() ledger.Repository { return u.transactions }
func (u *unitOfWork) Outbox() outbox.Repository       { return u.outbox }
