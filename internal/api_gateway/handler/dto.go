package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateAccountRequest represents a request to create a new account.
// The id is chosen by the caller.
type CreateAccountRequest struct {
	ID             *int64          `json:"id" binding:"required"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Currency       string          `json:"currency" binding:"required"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        int64  `json:"id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
}

// CreateTransferRequest represents a request to move money between two accounts
type CreateTransferRequest struct {
	SourceAccountID      *int64           `json:"source_account_id" binding:"required"`
	DestinationAccountID *int64           `json:"destination_account_id" binding:"required"`
	Amount               *decimal.Decimal `json:"amount" binding:"required"`
	Currency             string           `json:"currency" binding:"required"`
	RequestedAt          *time.Time       `json:"requested_at,omitempty"`
	RequestID            string           `json:"request_id,omitempty" binding:"omitempty,uuid"`
}

// TransferResponse represents a committed transfer
type TransferResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Message       string `json:"message"`
}

// TransferOutcomeResponse represents a recorded transfer outcome in API responses
type TransferOutcomeResponse struct {
	RequestID            string `json:"request_id,omitempty"`
	TransactionID        int64  `json:"transaction_id,omitempty"`
	SourceAccountID      int64  `json:"source_account_id"`
	DestinationAccountID int64  `json:"destination_account_id"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	Status               string `json:"status"`
	FailureReason        string `json:"failure_reason,omitempty"`
	RequestedAt          string `json:"requested_at"`
	ProcessedAt          string `json:"processed_at,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// ClearTableResponse confirms a cleared relation
type ClearTableResponse struct {
	Table   string `json:"table"`
	Message string `json:"message"`
}
