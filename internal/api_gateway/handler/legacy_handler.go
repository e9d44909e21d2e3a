package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tenx-bank-ledger/internal/api_gateway/middleware"
	"github.com/tenx-bank-ledger/internal/api_gateway/service"
	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

// legacyAccount is the account shape of the plain-text API
type legacyAccount struct {
	ID        int64       `json:"id"`
	Balance   json.Number `json:"balance"`
	Currency  string      `json:"currency"`
	CreatedAt string      `json:"createdAt"`
}

type legacyCreateAccount struct {
	ID       int64           `json:"id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type legacyTransfer struct {
	SourceAccountID      int64           `json:"sourceAccountId"`
	DestinationAccountID int64           `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	CreatedAt            string          `json:"createdAt"`
}

// LegacyHandler serves the unversioned plain-text routes. Business outcomes are
// answered with 200 and a human readable sentence; only infrastructure
// failures change the status code.
type LegacyHandler struct {
	accountService  service.AccountService
	transferService service.TransferService
	adminService    service.AdminService
	logger          *slog.Logger
}

func NewLegacyHandler(logger *slog.Logger, accountService service.AccountService, transferService service.TransferService, adminService service.AdminService) *LegacyHandler {
	return &LegacyHandler{
		accountService:  accountService,
		transferService: transferService,
		adminService:    adminService,
		logger:          logger,
	}
}

func (h *LegacyHandler) Greeting(c *gin.Context) {
	c.String(http.StatusOK, GreetingMessage)
}

// GetAccountStatuses lists every account as a JSON array
func (h *LegacyHandler) GetAccountStatuses(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := make([]legacyAccount, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, mapLegacyAccount(acc))
	}
	c.JSON(http.StatusOK, response)
}

func (h *LegacyHandler) GetAccountStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid account ID")
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapLegacyAccount(acc))
}

func (h *LegacyHandler) CreateAccount(c *gin.Context) {
	var body legacyCreateAccount
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), body.ID, body.Balance, body.Currency)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.String(http.StatusOK, AccountCreatedMessage(acc.ID))
}

func (h *LegacyHandler) Transfer(c *gin.Context) {
	var body legacyTransfer
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req := &transfer.Request{
		SourceAccountID:      body.SourceAccountID,
		DestinationAccountID: body.DestinationAccountID,
		Amount:               body.Amount,
		Currency:             body.Currency,
		CorrelationID:        middleware.GetCorrelationID(c),
	}
	if body.CreatedAt != "" {
		requestedAt, err := time.ParseInLocation(account.CreatedAtLayout, body.CreatedAt, time.UTC)
		if err != nil {
			c.String(http.StatusBadRequest, "Invalid createdAt, expected yyyy-MM-dd HH:mm:ss")
			return
		}
		req.RequestedAt = requestedAt
	}

	receipt, err := h.transferService.Transfer(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.String(http.StatusOK, TransferSucceededMessage(receipt.TransactionID))
}

func (h *LegacyHandler) ClearTable(c *gin.Context) {
	table, err := h.adminService.ClearTable(c.Request.Context(), c.Param("tablename"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.String(http.StatusOK, TableClearedMessage(table))
}

func (h *LegacyHandler) respondError(c *gin.Context, err error) {
	e := classify(err)
	if e.business() {
		c.String(http.StatusOK, err.Error())
		return
	}

	h.logger.Error("Legacy request failed", "path", c.FullPath(), "error", err)
	c.String(e.Status, e.Message)
}

func mapLegacyAccount(acc *account.Account) legacyAccount {
	return legacyAccount{
		ID:        acc.ID,
		Balance:   json.Number(acc.Balance.String()),
		Currency:  acc.Currency,
		CreatedAt: acc.CreatedAt.UTC().Format(account.CreatedAtLayout),
	}
}
