package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tenx-bank-ledger/internal/api_gateway/middleware"
	"github.com/tenx-bank-ledger/internal/api_gateway/service"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

// TransferHandler handles HTTP requests for transfers and their history
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Create executes a transfer and answers with its transaction id
func (h *TransferHandler) Create(c *gin.Context) {
	req, ok := h.bindTransfer(c)
	if !ok {
		return
	}

	receipt, err := h.transferService.Transfer(c.Request.Context(), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	RespondCreated(c, TransferResponse{
		TransactionID: receipt.TransactionID,
		Message:       TransferSucceededMessage(receipt.TransactionID),
	})
}

// CreateAsync queues a transfer for the transfer processor. A request id
// that was already processed is answered with the recorded outcome.
func (h *TransferHandler) CreateAsync(c *gin.Context) {
	req, ok := h.bindTransfer(c)
	if !ok {
		return
	}

	requestID, existing, err := h.transferService.SubmitTransfer(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Failed to submit transfer", "correlation_id", req.CorrelationID, "error", err)
		RespondServiceError(c, err)
		return
	}
	if existing != nil {
		RespondOK(c, mapAuditEntryToResponse(existing))
		return
	}

	RespondAccepted(c, gin.H{
		"request_id": requestID,
		"status":     "PENDING",
	})
}

func (h *TransferHandler) bindTransfer(c *gin.Context) (*transfer.Request, bool) {
	var body CreateTransferRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}

	req := &transfer.Request{
		SourceAccountID:      *body.SourceAccountID,
		DestinationAccountID: *body.DestinationAccountID,
		Amount:               *body.Amount,
		Currency:             body.Currency,
		CorrelationID:        middleware.GetCorrelationID(c),
	}
	if body.RequestedAt != nil {
		req.RequestedAt = *body.RequestedAt
	}
	if body.RequestID != "" {
		requestID, err := uuid.Parse(body.RequestID)
		if err != nil {
			RespondBadRequest(c, "Invalid request ID")
			return nil, false
		}
		req.RequestID = requestID
	}
	return req, true
}

// GetByID retrieves the recorded outcome of a transaction, 404 if none
func (h *TransferHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "Invalid transaction ID")
	if !ok {
		return
	}

	entry, err := h.transferService.GetTransferByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get transfer", "transaction_id", id, "error", err)
		RespondServiceError(c, err)
		return
	}
	if entry == nil {
		RespondNotFound(c, "Transfer not found")
		return
	}

	RespondOK(c, mapAuditEntryToResponse(entry))
}

// GetByAccountID retrieves paginated transfer history for an account
func (h *TransferHandler) GetByAccountID(c *gin.Context) {
	accountID, ok := parseIDParam(c, "id", "Invalid account ID")
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.transferService.GetTransfersByAccountID(
		c.Request.Context(),
		accountID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to get transfers", "account_id", accountID, "error", err)
		RespondServiceError(c, err)
		return
	}

	transfers := make([]TransferOutcomeResponse, 0, len(entries))
	for _, entry := range entries {
		transfers = append(transfers, mapAuditEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, transfers, pagination.Page, pagination.PerPage, int(total))
}

// mapAuditEntryToResponse maps an audit entry to a transfer outcome DTO
func mapAuditEntryToResponse(entry *audit.Entry) TransferOutcomeResponse {
	response := TransferOutcomeResponse{
		RequestID:            entry.RequestID,
		TransactionID:        entry.TransactionID,
		SourceAccountID:      entry.SourceAccountID,
		DestinationAccountID: entry.DestinationAccountID,
		Amount:               entry.Amount.String(),
		Currency:             entry.Currency,
		Status:               string(entry.Status),
		FailureReason:        entry.FailureReason,
		RequestedAt:          entry.RequestedAt.Format(time.RFC3339),
	}
	if entry.ProcessedAt != nil {
		response.ProcessedAt = entry.ProcessedAt.Format(time.RFC3339)
	}
	return response
}
