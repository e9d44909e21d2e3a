package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
)

const panicMessage = "An internal server error occurred"

// Recovery turns a handler panic into a 500. Routes under apiPrefix answer
// with the JSON error envelope; the legacy routes answer in plain text.
func Recovery(logger *slog.Logger, apiPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			correlationID := GetCorrelationID(c)
			logger.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"correlation_id", correlationID,
			)

			if !strings.HasPrefix(c.Request.URL.Path, apiPrefix) {
				c.Abort()
				c.String(http.StatusInternalServerError, panicMessage)
				return
			}

			response := gin.H{
				"error": gin.H{
					"code":    "INTERNAL_SERVER_ERROR",
					"message": panicMessage,
				},
			}
			if correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, response)
		}()

		c.Next()
	}
}
