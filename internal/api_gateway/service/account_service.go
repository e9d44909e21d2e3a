package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// AccountServiceImpl implements the AccountService and AdminService interfaces
type AccountServiceImpl struct {
	engine Engine
}

// NewAccountService creates a new account service
func NewAccountService(engine Engine) *AccountServiceImpl {
	return &AccountServiceImpl{
		engine: engine,
	}
}

func (s *AccountServiceImpl) CreateAccount(ctx context.Context, id int64, initialBalance decimal.Decimal, currency string) (*account.Account, error) {
	return s.engine.CreateAccount(ctx, id, initialBalance, currency)
}

func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id int64) (*account.Account, error) {
	return s.engine.GetAccount(ctx, id)
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	return s.engine.GetAllAccounts(ctx)
}

// ClearTable empties the accounts or transactions relation
func (s *AccountServiceImpl) ClearTable(ctx context.Context, name string) (shared.Table, error) {
	return s.engine.ClearTable(ctx, name)
}
