package components

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/shared"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

// MockAuditRepository mocks audit.Repository for the component tests
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) GetByTransactionID(ctx context.Context, transactionID int64) (*audit.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) GetByRequestID(ctx context.Context, requestID string) (*audit.Entry, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) GetByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*audit.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) CountByAccountID(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRequest() *transfer.Request {
	return &transfer.Request{
		RequestID:            uuid.New(),
		SourceAccountID:      1,
		DestinationAccountID: 2,
		Amount:               decimal.NewFromInt(30),
		Currency:             "GBP",
		CorrelationID:        "corr-7",
	}
}

func TestTransferValidator_Validate(t *testing.T) {
	validator := NewTransferValidator(nil, discardLogger())

	t.Run("request with id", func(t *testing.T) {
		assert.NoError(t, validator.Validate(context.Background(), newTestRequest()))
	})

	t.Run("negative amount is left to the engine", func(t *testing.T) {
		req := newTestRequest()
		req.Amount = decimal.NewFromInt(-5)
		assert.NoError(t, validator.Validate(context.Background(), req))
	})

	t.Run("missing request id", func(t *testing.T) {
		req := newTestRequest()
		req.RequestID = uuid.Nil
		assert.ErrorIs(t, validator.Validate(context.Background(), req), errMissingRequestID)
	})
}

func TestTransferValidator_CheckIdempotency(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		existing  *audit.Entry
		lookupErr error
		wantSkip  bool
		wantErr   bool
	}{
		{name: "new request", wantSkip: false},
		{
			name:     "completed request",
			existing: &audit.Entry{TransactionID: 4, Status: shared.TransferStatusCompleted},
			wantSkip: true,
		},
		{
			name:     "rejected request",
			existing: &audit.Entry{Status: shared.TransferStatusFailed, FailureReason: string(shared.FailureReasonInsufficientFunds)},
			wantSkip: true,
		},
		{name: "lookup failure", lookupErr: errors.New("mongo unavailable"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockAuditRepository)
			req := newTestRequest()
			if tt.existing != nil {
				repo.On("GetByRequestID", ctx, req.RequestID.String()).Return(tt.existing, nil)
			} else {
				repo.On("GetByRequestID", ctx, req.RequestID.String()).Return(nil, tt.lookupErr)
			}

			skip, err := NewTransferValidator(repo, discardLogger()).CheckIdempotency(ctx, req)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.lookupErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSkip, skip)
			repo.AssertExpectations(t)
		})
	}

	t.Run("without audit trail", func(t *testing.T) {
		skip, err := NewTransferValidator(nil, discardLogger()).CheckIdempotency(ctx, newTestRequest())
		require.NoError(t, err)
		assert.False(t, skip)
	})
}

var _ audit.Repository = (*MockAuditRepository)(nil)
