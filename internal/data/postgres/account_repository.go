// Package postgres provides PostgreSQL implementations of the ledger repositories.
// Repositories are bound to the pool for reads and rebound to a pgx.Tx with WithTx
// inside an atomic update.
package postgres

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/platform/persistence"
)

const sqlStateUniqueViolation = "23505"

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, querier persistence.Querier) *AccountRepository {
	return &AccountRepository{
		querier: querier,
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *AccountRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.querier.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check account existence", "account_id", id, "error", err)
		return false, ledger.Unavailable("check account existence", err)
	}
	return exists, nil
}

// Create stores a new account. A duplicate id yields ErrAccountAlreadyExists.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, balance, currency, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.querier.Exec(ctx, query, acc.ID, acc.Balance, acc.Currency, acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation {
			return account.ErrAccountAlreadyExists{AccountID: acc.ID}
		}
		r.logger.Error("Failed to create account", "account_id", acc.ID, "error", err)
		return ledger.Unavailable("create account", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	query := `
		SELECT id, balance, currency, created_at
		FROM accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, ledger.Unavailable("get account", err)
	}

	return acc, nil
}

// GetAll lists accounts in insertion order
func (r *AccountRepository) GetAll(ctx context.Context) ([]*account.Account, error) {
	query := `
		SELECT id, balance, currency, created_at
		FROM accounts
		ORDER BY seq ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, ledger.Unavailable("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, ledger.Unavailable("scan account", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over accounts", "error", err)
		return nil, ledger.Unavailable("list accounts", err)
	}

	return accounts, nil
}

// LockForUpdate takes row locks on the given accounts in ascending id order
// and returns the rows that exist
func (r *AccountRepository) LockForUpdate(ctx context.Context, ids ...int64) (map[int64]*account.Account, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	query := `
		SELECT id, balance, currency, created_at
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id ASC
		FOR UPDATE
	`

	rows, err := r.querier.Query(ctx, query, sorted)
	if err != nil {
		r.logger.Error("Failed to lock accounts", "account_ids", sorted, "error", err)
		return nil, ledger.Unavailable("lock accounts", err)
	}
	defer rows.Close()

	locked := make(map[int64]*account.Account, len(sorted))
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, ledger.Unavailable("scan locked account", err)
		}
		locked[acc.ID] = acc
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over locked accounts", "account_ids", sorted, "error", err)
		return nil, ledger.Unavailable("lock accounts", err)
	}

	return locked, nil
}

// UpdateBalance overwrites the balance of a locked account
func (r *AccountRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	result, err := r.querier.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return ledger.Unavailable("update account balance", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}

func (r *AccountRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.querier.Exec(ctx, `DELETE FROM accounts`)
	if err != nil {
		r.logger.Error("Failed to clear accounts", "error", err)
		return 0, ledger.Unavailable("clear accounts", err)
	}
	return result.RowsAffected(), nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	if err := row.Scan(&acc.ID, &acc.Balance, &acc.Currency, &acc.CreatedAt); err != nil {
		return nil, err
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	return &acc, nil
}
