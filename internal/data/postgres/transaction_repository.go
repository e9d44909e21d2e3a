package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/platform/persistence"
)

const (
	transactionCounter   = "transaction_id"
	requestIDUniqueIndex = "uniq_transactions_request_id"
)

// TransactionRepository implements the ledger.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTransactionRepository(logger *slog.Logger, querier persistence.Querier) *TransactionRepository {
	return &TransactionRepository{
		querier: querier,
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// NextTransactionID increments the counter row. The row lock is held until
// the surrounding transaction ends, so ids are gap-free and follow commit order.
func (r *TransactionRepository) NextTransactionID(ctx context.Context) (int64, error) {
	query := `
		UPDATE ledger_counters
		SET value = value + 1
		WHERE name = $1
		RETURNING value
	`

	var id int64
	if err := r.querier.QueryRow(ctx, query, transactionCounter).Scan(&id); err != nil {
		r.logger.Error("Failed to claim transaction id", "error", err)
		return 0, ledger.Unavailable("claim transaction id", err)
	}
	return id, nil
}

// Append inserts the record. A second record for the same request id hits
// the partial unique index and is reported as ErrDuplicateRequest.
func (r *TransactionRepository) Append(ctx context.Context, record *ledger.Record) error {
	query := `
		INSERT INTO transactions (id, kind, source_account_id, destination_account_id, amount, currency, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		record.TransactionID,
		record.Kind,
		record.SourceAccountID,
		record.DestinationAccountID,
		record.Amount,
		record.Currency,
		nullableRequestID(record.RequestID),
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation && pgErr.ConstraintName == requestIDUniqueIndex {
			return ledger.ErrDuplicateRequest{RequestID: record.RequestID}
		}
		r.logger.Error("Failed to append transaction",
			"transaction_id", record.TransactionID,
			"error", err,
		)
		return ledger.Unavailable("append transaction", err)
	}

	return nil
}

func nullableRequestID(requestID string) *string {
	if requestID == "" {
		return nil
	}
	return &requestID
}

// DeleteAll takes the counter row lock first so in-flight transfers, which
// hold it until commit, finish before the delete and are removed too. The
// counter itself is left alone.
func (r *TransactionRepository) DeleteAll(ctx context.Context) (int64, error) {
	var last int64
	err := r.querier.QueryRow(ctx, `SELECT value FROM ledger_counters WHERE name = $1 FOR UPDATE`, transactionCounter).Scan(&last)
	if err != nil {
		r.logger.Error("Failed to lock transaction counter", "error", err)
		return 0, ledger.Unavailable("lock transaction counter", err)
	}

	result, err := r.querier.Exec(ctx, `DELETE FROM transactions`)
	if err != nil {
		r.logger.Error("Failed to clear transactions", "error", err)
		return 0, ledger.Unavailable("clear transactions", err)
	}
	r.logger.Debug("Transactions cleared", "last_transaction_id", last)
	return result.RowsAffected(), nil
}
