package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/api"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// ExceptionHandler handles HTTP requests for the exception workflow
type ExceptionHandler struct {
	exceptions *application.ExceptionService
	logger     *logging.Logger
}

// NewExceptionHandler creates a new ExceptionHandler
func NewExceptionHandler(exceptions *application.ExceptionService, logger *logging.Logger) *ExceptionHandler {
	return &ExceptionHandler{
		exceptions: exceptions,
		logger:     logger,
	}
}

// RegisterRoutes registers the exception routes
func (h *ExceptionHandler) RegisterRoutes(r *gin.RouterGroup) {
	exceptions := r.Group("/exceptions")
	{
		exceptions.POST("", middleware.WrapHandler(h.LogException))
		exceptions.GET("", middleware.WrapHandler(h.ListExceptions))
		exceptions.GET("/:exceptionId", middleware.WrapHandler(h.GetException))
		exceptions.POST("/:exceptionId/review", middleware.WrapHandler(h.StartReview))
		exceptions.POST("/:exceptionId/approve", middleware.WrapHandler(h.ApproveException))
		exceptions.POST("/:exceptionId/reject", middleware.WrapHandler(h.RejectException))
		exceptions.POST("/:exceptionId/resolve", middleware.WrapHandler(h.ResolveException))
		exceptions.POST("/:exceptionId/cancel", middleware.WrapHandler(h.CancelException))
	}
}

// LogExceptionRequest is the request body for logging an exception
type LogExceptionRequest struct {
	OrderID     string `json:"orderId" binding:"required,order_id"`
	Type        string `json:"type" binding:"required"`
	SKU         string `json:"sku" binding:"omitempty,sku"`
	Bin         string `json:"bin" binding:"omitempty,bin"`
	Quantity    int    `json:"quantity" binding:"omitempty,min=1"`
	Description string `json:"description" binding:"required,safe_string"`
	ReportedBy  string `json:"reportedBy" binding:"required"`
}

// ReviewRequest is the request body for review-stage actions
type ReviewRequest struct {
	ReviewerID string `json:"reviewerId" binding:"required"`
}

// ResolveExceptionRequest is the request body for resolving an exception
type ResolveExceptionRequest struct {
	Resolution  string `json:"resolution" binding:"required"`
	Notes       string `json:"notes" binding:"omitempty,safe_string"`
	NewSKU      string `json:"newSku" binding:"omitempty,sku"`
	NewBin      string `json:"newBin" binding:"omitempty,bin"`
	NewQuantity int    `json:"newQuantity" binding:"omitempty,min=0"`
	Actor       string `json:"actor" binding:"required"`
}

// CancelExceptionRequest is the request body for withdrawing an exception
type CancelExceptionRequest struct {
	Reason string `json:"reason" binding:"required,safe_string"`
	Actor  string `json:"actor" binding:"required"`
}

// LogException handles POST /exceptions
func (h *ExceptionHandler) LogException(c *gin.Context) error {
	var req LogExceptionRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	exc, err := h.exceptions.LogException(c.Request.Context(), application.LogExceptionCommand{
		OrderID:     req.OrderID,
		Type:        req.Type,
		SKU:         req.SKU,
		Bin:         req.Bin,
		Quantity:    req.Quantity,
		Description: req.Description,
		ReportedBy:  req.ReportedBy,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Exception logged",
		"exception_id", exc.ExceptionID,
		"order_id", exc.OrderID,
		"type", exc.Type,
	)
	c.JSON(http.StatusCreated, exc)
	return nil
}

// GetException handles GET /exceptions/:exceptionId
func (h *ExceptionHandler) GetException(c *gin.Context) error {
	exc, err := h.exceptions.GetException(c.Request.Context(), application.GetExceptionQuery{
		ExceptionID: c.Param("exceptionId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, exc)
	return nil
}

// ListExceptions handles GET /exceptions
func (h *ExceptionHandler) ListExceptions(c *gin.Context) error {
	page := api.ParsePagination(c)

	exceptions, total, err := h.exceptions.ListExceptions(c.Request.Context(), application.ListExceptionsQuery{
		OrderID:  c.Query("orderId"),
		Status:   c.Query("status"),
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, api.NewPageResponse(exceptions, page.Page, page.PageSize, total))
	return nil
}

// StartReview handles POST /exceptions/:exceptionId/review
func (h *ExceptionHandler) StartReview(c *gin.Context) error {
	var req ReviewRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	exc, err := h.exceptions.StartReview(c.Request.Context(), application.StartExceptionReviewCommand{
		ExceptionID: c.Param("exceptionId"),
		ReviewerID:  req.ReviewerID,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, exc)
	return nil
}

// ApproveException handles POST /exceptions/:exceptionId/approve
func (h *ExceptionHandler) ApproveException(c *gin.Context) error {
	var req ReviewRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	exc, err := h.exceptions.ApproveException(c.Request.Context(), application.ApproveExceptionCommand{
		ExceptionID: c.Param("exceptionId"),
		ReviewerID:  req.ReviewerID,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, exc)
	return nil
}

// RejectException handles POST /exceptions/:exceptionId/reject
func (h *ExceptionHandler) RejectException(c *gin.Context) error {
	var req ReviewRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	exc, err := h.exceptions.RejectException(c.Request.Context(), application.RejectExceptionCommand{
		ExceptionID: c.Param("exceptionId"),
		ReviewerID:  req.ReviewerID,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, exc)
	return nil
}

// ResolveException handles POST /exceptions/:exceptionId/resolve
func (h *ExceptionHandler) ResolveException(c *gin.Context) error {
	var req ResolveExceptionRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	exc, err := h.exceptions.ResolveException(c.Request.Context(), application.ResolveExceptionCommand{
		ExceptionID: c.Param("exceptionId"),
		Resolution:  req.Resolution,
		Notes:       req.Notes,
		NewSKU:      req.NewSKU,
		NewBin:      req.NewBin,
		NewQuantity: req.NewQuantity,
		Actor:       req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Exception resolved",
		"exception_id", exc.ExceptionID,
		"order_id", exc.OrderID,
		"resolution", exc.Resolution,
	)
	c.JSON(http.StatusOK, exc)
	return nil
}

// CancelException handles POST /exceptions/:exceptionId/cancel
func (h *ExceptionHandler) CancelException(c *gin.Context) error {
	var req CancelExceptionRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	exc, err := h.exceptions.CancelException(c.Request.Context(), application.CancelExceptionCommand{
		ExceptionID: c.Param("exceptionId"),
		Reason:      req.Reason,
		Actor:       req.Actor,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, exc)
	return nil
}
