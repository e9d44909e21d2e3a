package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tenx-bank-ledger/internal/api_gateway/service"
	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/shared"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) Transfer(ctx context.Context, req *transfer.Request) (*transfer.Receipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Receipt), args.Error(1)
}

func (m *MockTransferService) SubmitTransfer(ctx context.Context, req *transfer.Request) (string, *audit.Entry, error) {
	args := m.Called(ctx, req)
	var entry *audit.Entry
	if args.Get(1) != nil {
		entry = args.Get(1).(*audit.Entry)
	}
	return args.String(0), entry, args.Error(2)
}

func (m *MockTransferService) GetTransferByID(ctx context.Context, transactionID int64) (*audit.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Entry), args.Error(1)
}

func (m *MockTransferService) GetTransfersByAccountID(ctx context.Context, accountID int64, page, perPage int) ([]*audit.Entry, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*audit.Entry), args.Get(1).(int64), args.Error(2)
}

func newEntryFixture(transactionID, source, destination int64) *audit.Entry {
	processedAt := time.Date(2024, 3, 1, 10, 30, 1, 0, time.UTC)
	return &audit.Entry{
		TransactionID:        transactionID,
		Kind:                 shared.TransactionKindTransfer,
		SourceAccountID:      source,
		DestinationAccountID: destination,
		Amount:               decimal.RequireFromString("12.5"),
		Currency:             "GBP",
		Status:               shared.TransferStatusCompleted,
		RequestedAt:          time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		ProcessedAt:          &processedAt,
	}
}

func postJSON(path, body string) *http.Request {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestTransferHandler_Create(t *testing.T) {
	logger := discardLogger()
	validBody := `{"source_account_id": 1, "destination_account_id": 2, "amount": "12.5", "currency": "GBP", "requested_at": "2024-03-01T10:30:00Z"}`

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("Transfer", mock.Anything, mock.MatchedBy(func(req *transfer.Request) bool {
			return req.SourceAccountID == 1 &&
				req.DestinationAccountID == 2 &&
				req.Amount.Equal(decimal.RequireFromString("12.5")) &&
				req.Currency == "GBP" &&
				req.RequestedAt.Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC))
		})).Return(&transfer.Receipt{TransactionID: 3}, nil)

		router := setupTestRouter()
		router.POST("/transfers", handler.Create)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, postJSON("/transfers", validBody))

		assert.Equal(t, http.StatusCreated, rr.Code)

		var responseBody TransferResponse
		decodeData(t, rr.Body.Bytes(), &responseBody)
		assert.Equal(t, int64(3), responseBody.TransactionID)
		assert.Equal(t, "Transaction successful. Transaction ID [3]", responseBody.Message)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{name: "malformed json", body: `{"source_account_id": 1,`},
			{name: "missing amount", body: `{"source_account_id": 1, "destination_account_id": 2, "currency": "GBP"}`},
			{name: "missing destination", body: `{"source_account_id": 1, "amount": "1", "currency": "GBP"}`},
			{name: "invalid request id", body: `{"source_account_id": 1, "destination_account_id": 2, "amount": "1", "currency": "GBP", "request_id": "nope"}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockService := new(MockTransferService)
				handler := NewTransferHandler(logger, mockService)

				router := setupTestRouter()
				router.POST("/transfers", handler.Create)

				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, postJSON("/transfers", tt.body))

				assert.Equal(t, http.StatusBadRequest, rr.Code)
				mockService.AssertNotCalled(t, "Transfer")
			})
		}
	})

	t.Run("BusinessErrors", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
			wantCode   string
		}{
			{name: "same account", err: transfer.ErrSameAccount{AccountID: 1}, wantStatus: http.StatusBadRequest, wantCode: "SAME_ACCOUNT"},
			{name: "source missing", err: transfer.ErrSourceNotFound{AccountID: 1}, wantStatus: http.StatusNotFound, wantCode: "ACCOUNT_NOT_FOUND"},
			{name: "both missing", err: transfer.ErrBothAccountsNotFound{SourceAccountID: 1, DestinationAccountID: 2}, wantStatus: http.StatusNotFound, wantCode: "ACCOUNT_NOT_FOUND"},
			{name: "insufficient funds", err: account.ErrInsufficientFunds, wantStatus: http.StatusUnprocessableEntity, wantCode: "INSUFFICIENT_FUNDS"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockService := new(MockTransferService)
				handler := NewTransferHandler(logger, mockService)
				mockService.On("Transfer", mock.Anything, mock.Anything).Return(nil, tt.err)

				router := setupTestRouter()
				router.POST("/transfers", handler.Create)

				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, postJSON("/transfers", validBody))

				assert.Equal(t, tt.wantStatus, rr.Code)
				response := decodeData(t, rr.Body.Bytes(), nil)
				require.NotNil(t, response.Error)
				assert.Equal(t, tt.wantCode, response.Error.Code)
				assert.Equal(t, tt.err.Error(), response.Error.Message)
			})
		}
	})
}

func TestTransferHandler_CreateAsync(t *testing.T) {
	logger := discardLogger()
	requestID := uuid.New()
	body := `{"source_account_id": 1, "destination_account_id": 2, "amount": 10, "currency": "GBP", "request_id": "` + requestID.String() + `"}`

	t.Run("Accepted", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("SubmitTransfer", mock.Anything, mock.MatchedBy(func(req *transfer.Request) bool {
			return req.RequestID == requestID
		})).Return(requestID.String(), nil, nil)

		router := setupTestRouter()
		router.POST("/transfers/async", handler.CreateAsync)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, postJSON("/transfers/async", body))

		assert.Equal(t, http.StatusAccepted, rr.Code)

		var responseBody map[string]string
		decodeData(t, rr.Body.Bytes(), &responseBody)
		assert.Equal(t, requestID.String(), responseBody["request_id"])
		assert.Equal(t, "PENDING", responseBody["status"])
		mockService.AssertExpectations(t)
	})

	t.Run("AlreadyProcessed", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		existing := newEntryFixture(4, 1, 2)
		existing.RequestID = requestID.String()
		mockService.On("SubmitTransfer", mock.Anything, mock.Anything).Return(requestID.String(), existing, nil)

		router := setupTestRouter()
		router.POST("/transfers/async", handler.CreateAsync)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, postJSON("/transfers/async", body))

		assert.Equal(t, http.StatusOK, rr.Code)

		var responseBody TransferOutcomeResponse
		decodeData(t, rr.Body.Bytes(), &responseBody)
		assert.Equal(t, int64(4), responseBody.TransactionID)
		assert.Equal(t, "COMPLETED", responseBody.Status)
		assert.Equal(t, "12.5", responseBody.Amount)
	})

	t.Run("AsyncDisabled", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("SubmitTransfer", mock.Anything, mock.Anything).Return("", nil, service.ErrAsyncUnavailable)

		router := setupTestRouter()
		router.POST("/transfers/async", handler.CreateAsync)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, postJSON("/transfers/async", body))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestTransferHandler_GetByID(t *testing.T) {
	logger := discardLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("GetTransferByID", mock.Anything, int64(4)).Return(newEntryFixture(4, 1, 2), nil)

		router := setupTestRouter()
		router.GET("/transfers/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/transfers/4", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var responseBody TransferOutcomeResponse
		decodeData(t, rr.Body.Bytes(), &responseBody)
		assert.Equal(t, int64(1), responseBody.SourceAccountID)
		assert.Equal(t, "2024-03-01T10:30:00Z", responseBody.RequestedAt)
		assert.Equal(t, "2024-03-01T10:30:01Z", responseBody.ProcessedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("GetTransferByID", mock.Anything, int64(99)).Return(nil, nil)

		router := setupTestRouter()
		router.GET("/transfers/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/transfers/99", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("AuditDisabled", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("GetTransferByID", mock.Anything, int64(1)).Return(nil, service.ErrAuditUnavailable)

		router := setupTestRouter()
		router.GET("/transfers/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/transfers/1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestTransferHandler_GetByAccountID(t *testing.T) {
	logger := discardLogger()

	t.Run("Paginated", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		entries := []*audit.Entry{newEntryFixture(6, 1, 2), newEntryFixture(5, 2, 1)}
		mockService.On("GetTransfersByAccountID", mock.Anything, int64(1), 2, 2).Return(entries, int64(5), nil)

		router := setupTestRouter()
		router.GET("/accounts/:id/transactions", handler.GetByAccountID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/1/transactions?page=2&per_page=2", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var responseBody []TransferOutcomeResponse
		response := decodeData(t, rr.Body.Bytes(), &responseBody)
		require.Len(t, responseBody, 2)
		require.NotNil(t, response.Meta)
		assert.Equal(t, 3, response.Meta.TotalPages)
		assert.Equal(t, 5, response.Meta.TotalItems)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/accounts/:id/transactions", handler.GetByAccountID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/1/transactions?per_page=500", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetTransfersByAccountID")
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("GetTransfersByAccountID", mock.Anything, int64(1), 1, 10).
			Return(nil, int64(0), errors.New("mongo down"))

		router := setupTestRouter()
		router.GET("/accounts/:id/transactions", handler.GetByAccountID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/1/transactions", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

var _ service.TransferService = (*MockTransferService)(nil)
