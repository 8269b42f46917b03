package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

// APIErrorResponse is the error envelope every endpoint renders. Clients
// switch on Code; Message wording is for humans and not contractual.
type APIErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

func newErrorResponse(c *gin.Context, appErr *errors.AppError) APIErrorResponse {
	requestID, _ := c.Get(ContextKeyRequestID)
	reqID, _ := requestID.(string)

	return APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: reqID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

// ErrorHandler renders the last error attached to the gin context. Handlers
// call c.Error and return; nothing below the HTTP layer writes an error
// response.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := errors.MapDomainError(c.Errors.Last().Err)
		response := newErrorResponse(c, appErr)

		logError(logger, c, appErr, response.RequestID)
		c.JSON(appErr.HTTPStatus, response)
	}
}

// logError records client errors at warn and server errors at error.
func logError(logger *slog.Logger, c *gin.Context, appErr *errors.AppError, requestID string) {
	level := slog.LevelError
	if appErr.HTTPStatus < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	attrs := []any{
		"code", appErr.Code,
		"message", appErr.Message,
		"status", appErr.HTTPStatus,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"requestId", requestID,
		"clientIP", c.ClientIP(),
	}
	if appErr.Err != nil {
		attrs = append(attrs, "error", appErr.Err.Error())
	}
	if appErr.Details != nil {
		attrs = append(attrs, "details", appErr.Details)
	}

	logger.Log(c.Request.Context(), level, "API error", attrs...)
}

// AbortWithAppError stops the chain and renders the envelope immediately,
// for middleware that rejects a request before it reaches a handler.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, newErrorResponse(c, appErr))
}
