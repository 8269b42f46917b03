package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/api"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// InventoryHandler handles HTTP requests for the inventory ledger
type InventoryHandler struct {
	inventory *application.InventoryService
	logger    *logging.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventory *application.InventoryService, logger *logging.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// RegisterRoutes registers the inventory routes
func (h *InventoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	inventory := r.Group("/inventory")
	{
		inventory.POST("/receive", middleware.WrapHandler(h.ReceiveStock))
		inventory.POST("/adjust", middleware.WrapHandler(h.AdjustStock))
		inventory.GET("", middleware.WrapHandler(h.ListInventory))
		inventory.GET("/:sku", middleware.WrapHandler(h.GetInventory))
		inventory.GET("/:sku/history", middleware.WrapHandler(h.GetInventoryHistory))
	}
}

// ReceiveStockRequest is the request body for putting stock away
type ReceiveStockRequest struct {
	SKU      string `json:"sku" binding:"required,sku"`
	Bin      string `json:"bin" binding:"required,bin"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Actor    string `json:"actor" binding:"required"`
}

// AdjustStockRequest is the request body for correcting an on-hand count
type AdjustStockRequest struct {
	SKU       string `json:"sku" binding:"required,sku"`
	Bin       string `json:"bin" binding:"required,bin"`
	NewOnHand int    `json:"newOnHand" binding:"min=0"`
	Reason    string `json:"reason" binding:"required,safe_string"`
	Actor     string `json:"actor" binding:"required"`
}

// ReceiveStock handles POST /inventory/receive
func (h *InventoryHandler) ReceiveStock(c *gin.Context) error {
	var req ReceiveStockRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	unit, err := h.inventory.ReceiveStock(c.Request.Context(), application.ReceiveStockCommand{
		SKU:      req.SKU,
		Bin:      req.Bin,
		Quantity: req.Quantity,
		Actor:    req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Stock received", "sku", unit.SKU, "bin", unit.Bin, "quantity", req.Quantity)
	c.JSON(http.StatusOK, unit)
	return nil
}

// AdjustStock handles POST /inventory/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) error {
	var req AdjustStockRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	unit, err := h.inventory.AdjustStock(c.Request.Context(), application.AdjustStockCommand{
		SKU:       req.SKU,
		Bin:       req.Bin,
		NewOnHand: req.NewOnHand,
		Reason:    req.Reason,
		Actor:     req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Stock adjusted",
		"sku", unit.SKU,
		"bin", unit.Bin,
		"on_hand", unit.OnHand,
		"reason", req.Reason,
	)
	c.JSON(http.StatusOK, unit)
	return nil
}

// ListInventory handles GET /inventory
func (h *InventoryHandler) ListInventory(c *gin.Context) error {
	page := api.ParsePagination(c)

	units, total, err := h.inventory.ListInventory(c.Request.Context(), application.ListInventoryQuery{
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, api.NewPageResponse(units, page.Page, page.PageSize, total))
	return nil
}

// GetInventory handles GET /inventory/:sku
func (h *InventoryHandler) GetInventory(c *gin.Context) error {
	units, err := h.inventory.GetInventory(c.Request.Context(), application.GetInventoryQuery{
		SKU: c.Param("sku"),
		Bin: c.Query("bin"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, gin.H{"data": units, "total": len(units)})
	return nil
}

// GetInventoryHistory handles GET /inventory/:sku/history
func (h *InventoryHandler) GetInventoryHistory(c *gin.Context) error {
	bin := c.Query("bin")
	if bin == "" {
		return errors.ErrValidation("bin query parameter is required")
	}

	page := api.ParsePagination(c)

	transactions, total, err := h.inventory.GetInventoryHistory(c.Request.Context(), application.GetInventoryHistoryQuery{
		SKU:      c.Param("sku"),
		Bin:      bin,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, api.NewPageResponse(transactions, page.Page, page.PageSize, total))
	return nil
}
