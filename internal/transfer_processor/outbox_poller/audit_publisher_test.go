package outbox_poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/outbox"
	"github.com/tenx-bank-ledger/internal/domain/shared"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Create(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepo) GetByTransactionID(ctx context.Context, transactionID int64) (*audit.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Entry), args.Error(1)
}

func (m *MockAuditRepo) GetByRequestID(ctx context.Context, requestID string) (*audit.Entry, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Entry), args.Error(1)
}

func (m *MockAuditRepo) GetByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*audit.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditRepo) CountByAccountID(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testBreaker = config.BreakerConfig{
	MaxRequests:         1,
	Timeout:             time.Minute,
	ConsecutiveFailures: 2,
}

func newTestMessage(t *testing.T, id, transactionID int64) *outbox.Message {
	t.Helper()
	msg, err := outbox.NewMessage(&audit.Entry{
		TransactionID:        transactionID,
		Kind:                 shared.TransactionKindTransfer,
		SourceAccountID:      1,
		DestinationAccountID: 2,
		Amount:               decimal.NewFromInt(25),
		Currency:             "GBP",
		Status:               shared.TransferStatusCompleted,
		CorrelationID:        "corr-1",
		RequestedAt:          time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	msg.ID = id
	return msg
}

func TestAuditPublisher_PublishToAudit(t *testing.T) {
	fixedNow := time.Date(2024, 3, 1, 10, 31, 0, 0, time.UTC)

	tests := []struct {
		name          string
		message       func(t *testing.T) *outbox.Message
		setupMocks    func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo)
		expectedError string
	}{
		{
			name:    "writes entry and marks message processed",
			message: func(t *testing.T) *outbox.Message { return newTestMessage(t, 1, 9) },
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *audit.Entry) bool {
					return e.TransactionID == 9 &&
						e.Status == shared.TransferStatusCompleted &&
						e.Amount.Equal(decimal.NewFromInt(25)) &&
						e.ProcessedAt != nil && e.ProcessedAt.Equal(fixedNow)
				})).Return(nil).Once()
				outboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
		},
		{
			name:    "duplicate entry counts as written",
			message: func(t *testing.T) *outbox.Message { return newTestMessage(t, 1, 9) },
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("Create", mock.Anything, mock.Anything).Return(audit.ErrDuplicateEntry{Key: "transaction_id=9"}).Once()
				outboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
		},
		{
			name: "undecodable payload",
			message: func(t *testing.T) *outbox.Message {
				return &outbox.Message{ID: 1, TransactionID: 9, Payload: []byte("not json"), Status: shared.OutboxStatusPending}
			},
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				outboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			expectedError: "decode payload",
		},
		{
			name:    "audit write fails",
			message: func(t *testing.T) *outbox.Message { return newTestMessage(t, 1, 9) },
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()
			},
			expectedError: "failed to write audit entry",
		},
		{
			name:    "outbox status update fails",
			message: func(t *testing.T) *outbox.Message { return newTestMessage(t, 1, 9) },
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
				outboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(errors.New("db error")).Once()
			},
			expectedError: "failed to mark outbox",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outboxRepo := &MockOutboxRepo{}
			auditRepo := &MockAuditRepo{}
			tt.setupMocks(outboxRepo, auditRepo)

			publisher := NewAuditPublisher(testBreaker, outboxRepo, auditRepo, discardLogger())
			publisher.now = func() time.Time { return fixedNow }

			err := publisher.PublishToAudit(context.Background(), tt.message(t))
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.NotErrorIs(t, err, ErrBreakerOpen)
			} else {
				assert.NoError(t, err)
			}

			outboxRepo.AssertExpectations(t)
			auditRepo.AssertExpectations(t)
		})
	}
}

func TestAuditPublisher_Breaker(t *testing.T) {
	ctx := context.Background()
	outboxRepo := &MockOutboxRepo{}
	auditRepo := &MockAuditRepo{}
	auditRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Twice()

	publisher := NewAuditPublisher(testBreaker, outboxRepo, auditRepo, discardLogger())

	for i := 0; i < 2; i++ {
		err := publisher.PublishToAudit(ctx, newTestMessage(t, int64(i+1), int64(i+1)))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrBreakerOpen)
	}
	assert.Equal(t, gobreaker.StateOpen, publisher.BreakerState())

	err := publisher.PublishToAudit(ctx, newTestMessage(t, 3, 3))
	assert.ErrorIs(t, err, ErrBreakerOpen)

	auditRepo.AssertNumberOfCalls(t, "Create", 2)
	outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuditPublisher_DuplicatesDoNotTrip(t *testing.T) {
	ctx := context.Background()
	outboxRepo := &MockOutboxRepo{}
	auditRepo := &MockAuditRepo{}
	auditRepo.On("Create", mock.Anything, mock.Anything).Return(audit.ErrDuplicateEntry{Key: "transaction_id"})
	outboxRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.OutboxStatusProcessed).Return(nil)

	publisher := NewAuditPublisher(testBreaker, outboxRepo, auditRepo, discardLogger())
	for i := 0; i < 3; i++ {
		require.NoError(t, publisher.PublishToAudit(ctx, newTestMessage(t, int64(i+1), int64(i+1))))
	}
	assert.Equal(t, gobreaker.StateClosed, publisher.BreakerState())
}
