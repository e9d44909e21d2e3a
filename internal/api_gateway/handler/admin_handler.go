package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/tenx-bank-ledger/internal/api_gateway/service"
)

// AdminHandler serves maintenance endpoints
type AdminHandler struct {
	adminService service.AdminService
	logger       *slog.Logger
}

func NewAdminHandler(logger *slog.Logger, adminService service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// ClearTable empties the accounts or transactions table named in the path
func (h *AdminHandler) ClearTable(c *gin.Context) {
	name := c.Param("table")

	table, err := h.adminService.ClearTable(c.Request.Context(), name)
	if err != nil {
		h.logger.Warn("Failed to clear table", "table", name, "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, ClearTableResponse{
		Table:   string(table),
		Message: TableClearedMessage(table),
	})
}
