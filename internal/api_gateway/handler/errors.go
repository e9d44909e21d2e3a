package handler

import (
	"errors"
	"net/http"

	"github.com/tenx-bank-ledger/internal/api_gateway/service"
	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

const internalErrorMessage = "An internal server error occurred"

// apiError is the HTTP rendering of a service error
type apiError struct {
	Status  int
	Code    string
	Message string
}

// business reports whether the error is an expected outcome of the request
// rather than a failure of the service
func (e apiError) business() bool {
	return e.Status < http.StatusInternalServerError
}

// classify maps service errors to HTTP statuses and error codes
func classify(err error) apiError {
	var (
		same        transfer.ErrSameAccount
		source      transfer.ErrSourceNotFound
		destination transfer.ErrDestinationNotFound
		both        transfer.ErrBothAccountsNotFound
		notFound    account.ErrAccountNotFound
		exists      account.ErrAccountAlreadyExists
		table       ledger.ErrInvalidTable
	)

	switch {
	case errors.As(err, &same):
		return apiError{http.StatusBadRequest, "SAME_ACCOUNT", err.Error()}
	case errors.As(err, &source), errors.As(err, &destination), errors.As(err, &both):
		return apiError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", err.Error()}
	case errors.As(err, &notFound):
		return apiError{http.StatusNotFound, "NOT_FOUND", err.Error()}
	case errors.As(err, &exists):
		return apiError{http.StatusConflict, "CONFLICT", err.Error()}
	case errors.Is(err, account.ErrInsufficientFunds):
		return apiError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", err.Error()}
	case errors.As(err, &table):
		return apiError{http.StatusBadRequest, "INVALID_TABLE", err.Error()}
	case errors.Is(err, ledger.ErrDuplicateRequest{}):
		return apiError{http.StatusConflict, "DUPLICATE_REQUEST", err.Error()}
	case errors.Is(err, account.ErrNegativeBalance):
		return apiError{http.StatusBadRequest, "BAD_REQUEST", err.Error()}
	case errors.Is(err, ledger.ErrStorageUnavailable{}):
		return apiError{http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is temporarily unavailable"}
	case errors.Is(err, service.ErrAsyncUnavailable), errors.Is(err, service.ErrAuditUnavailable):
		return apiError{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error()}
	default:
		return apiError{http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", internalErrorMessage}
	}
}
