package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenx-bank-ledger/internal/api_gateway/middleware"
)

// Response is the /api/v1 envelope. Exactly one of Data and Error is set.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes the page returned by a paginated listing
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func newMetaInfo(page, perPage, totalItems int) *MetaInfo {
	meta := &MetaInfo{Page: page, PerPage: perPage, TotalItems: totalItems}
	if perPage > 0 {
		meta.TotalPages = (totalItems + perPage - 1) / perPage
	}
	return meta
}

// respond stamps the request's correlation id on body and writes it
func respond(c *gin.Context, statusCode int, body *Response) {
	body.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, body)
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, &Response{Data: data})
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, &Response{Data: data})
}

// RespondAccepted acknowledges work that completes asynchronously
func RespondAccepted(c *gin.Context, data interface{}) {
	respond(c, http.StatusAccepted, &Response{Data: data})
}

// RespondWithPaginatedData sends one page of a listing with its meta block
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	respond(c, statusCode, &Response{Data: data, Meta: newMetaInfo(page, perPage, totalItems)})
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondServiceError maps err to its status and error code
func RespondServiceError(c *gin.Context, err error) {
	e := classify(err)
	RespondWithError(c, e.Status, e.Code, e.Message)
}
