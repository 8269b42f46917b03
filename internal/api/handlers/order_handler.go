package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/api"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// OrderHandler handles HTTP requests for the order lifecycle
type OrderHandler struct {
	allocation *application.OrderAllocationService
	execution  *application.OrderExecutionService
	logger     *logging.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(allocation *application.OrderAllocationService, execution *application.OrderExecutionService, logger *logging.Logger) *OrderHandler {
	return &OrderHandler{
		allocation: allocation,
		execution:  execution,
		logger:     logger,
	}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", middleware.WrapHandler(h.CreateOrder))
		orders.GET("", middleware.WrapHandler(h.ListOrders))
		orders.GET("/:orderId", middleware.WrapHandler(h.GetOrder))
		orders.GET("/:orderId/history", middleware.WrapHandler(h.GetOrderHistory))
		orders.POST("/:orderId/claim", middleware.WrapHandler(h.ClaimOrder))
		orders.POST("/:orderId/picks", middleware.WrapHandler(h.RecordPick))
		orders.POST("/:orderId/picks/undo", middleware.WrapHandler(h.UndoPick))
		orders.POST("/:orderId/packing", middleware.WrapHandler(h.StartPacking))
		orders.POST("/:orderId/packs", middleware.WrapHandler(h.RecordPack))
		orders.POST("/:orderId/ship", middleware.WrapHandler(h.ShipOrder))
		orders.POST("/:orderId/cancel", middleware.WrapHandler(h.CancelOrder))
		orders.POST("/:orderId/backorder", middleware.WrapHandler(h.BackorderOrder))
		orders.POST("/:orderId/release", middleware.WrapHandler(h.ReleaseBackorder))
	}
}

// CreateOrderRequest is the request body for entering a new order
type CreateOrderRequest struct {
	OrderID        string             `json:"orderId" binding:"omitempty,order_id"`
	CustomerID     string             `json:"customerId" binding:"required"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingMethod string             `json:"shippingMethod" binding:"omitempty,shipping_method"`
	Carrier        string             `json:"carrier" binding:"omitempty,carrier_code"`
	Actor          string             `json:"actor"`
}

// OrderItemRequest is one requested order line
type OrderItemRequest struct {
	SKU         string `json:"sku" binding:"required,sku"`
	Bin         string `json:"bin" binding:"required,bin"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
}

// ClaimOrderRequest is the request body for claiming an order
type ClaimOrderRequest struct {
	PickerID string `json:"pickerId" binding:"required,worker_id"`
	Actor    string `json:"actor"`
}

// PickRequest is the request body for recording or undoing picks
type PickRequest struct {
	SKU      string `json:"sku" binding:"required,sku"`
	Bin      string `json:"bin" binding:"omitempty,bin"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Reason   string `json:"reason" binding:"omitempty,safe_string"`
	Actor    string `json:"actor" binding:"required"`
}

// StartPackingRequest is the request body for moving an order to packing
type StartPackingRequest struct {
	PackerID string `json:"packerId" binding:"required,worker_id"`
	Actor    string `json:"actor"`
}

// PackRequest is the request body for recording verified units
type PackRequest struct {
	SKU      string `json:"sku" binding:"required,sku"`
	Bin      string `json:"bin" binding:"required,bin"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Actor    string `json:"actor" binding:"required"`
}

// ShipOrderRequest is the request body for shipping a packed order
type ShipOrderRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"omitempty,tracking_number"`
	Actor          string `json:"actor" binding:"required"`
}

// CancelOrderRequest is the request body for the cancel operation
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,safe_string"`
	Actor  string `json:"actor" binding:"required"`
}

// BackorderRequest is the request body for parking an order on backorder
type BackorderRequest struct {
	Reason string `json:"reason" binding:"required,safe_string"`
	Actor  string `json:"actor" binding:"required"`
}

// ReleaseBackorderRequest is the request body for releasing a backorder
type ReleaseBackorderRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) error {
	var req CreateOrderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	items := make([]domain.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.OrderItem{
			SKU:         item.SKU,
			Bin:         item.Bin,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
		}
	}

	order, err := h.allocation.CreateOrder(c.Request.Context(), application.CreateOrderCommand{
		OrderID:        req.OrderID,
		CustomerID:     req.CustomerID,
		Items:          items,
		ShippingMethod: req.ShippingMethod,
		Carrier:        req.Carrier,
		Actor:          req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Order created",
		"order_id", order.OrderID,
		"customer_id", order.CustomerID,
		"lines", len(order.Items),
	)
	c.JSON(http.StatusCreated, order)
	return nil
}

// GetOrder handles GET /orders/:orderId
func (h *OrderHandler) GetOrder(c *gin.Context) error {
	order, err := h.allocation.GetOrder(c.Request.Context(), application.GetOrderQuery{
		OrderID: c.Param("orderId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, order)
	return nil
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) error {
	page := api.ParsePagination(c)

	orders, total, err := h.allocation.ListOrders(c.Request.Context(), application.ListOrdersQuery{
		Status:   c.Query("status"),
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, api.NewPageResponse(orders, page.Page, page.PageSize, total))
	return nil
}

// GetOrderHistory handles GET /orders/:orderId/history
func (h *OrderHandler) GetOrderHistory(c *gin.Context) error {
	changes, err := h.allocation.GetOrderHistory(c.Request.Context(), application.GetOrderHistoryQuery{
		OrderID: c.Param("orderId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, gin.H{"data": changes, "total": len(changes)})
	return nil
}

// ClaimOrder handles POST /orders/:orderId/claim
func (h *OrderHandler) ClaimOrder(c *gin.Context) error {
	var req ClaimOrderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	order, err := h.allocation.ClaimOrder(c.Request.Context(), application.ClaimOrderCommand{
		OrderID:  c.Param("orderId"),
		PickerID: req.PickerID,
		Actor:    req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Order claimed", "order_id", order.OrderID, "picker_id", req.PickerID)
	c.JSON(http.StatusOK, order)
	return nil
}

// RecordPick handles POST /orders/:orderId/picks
func (h *OrderHandler) RecordPick(c *gin.Context) error {
	var req PickRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	result, err := h.execution.RecordPick(c.Request.Context(), application.RecordPickCommand{
		OrderID:  c.Param("orderId"),
		SKU:      req.SKU,
		Bin:      req.Bin,
		Quantity: req.Quantity,
		Actor:    req.Actor,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// UndoPick handles POST /orders/:orderId/picks/undo
func (h *OrderHandler) UndoPick(c *gin.Context) error {
	var req PickRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	result, err := h.execution.UndoPick(c.Request.Context(), application.UndoPickCommand{
		OrderID:  c.Param("orderId"),
		SKU:      req.SKU,
		Bin:      req.Bin,
		Quantity: req.Quantity,
		Reason:   req.Reason,
		Actor:    req.Actor,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// StartPacking handles POST /orders/:orderId/packing
func (h *OrderHandler) StartPacking(c *gin.Context) error {
	var req StartPackingRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	order, err := h.execution.StartPacking(c.Request.Context(), application.StartPackingCommand{
		OrderID:  c.Param("orderId"),
		PackerID: req.PackerID,
		Actor:    req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Packing started", "order_id", order.OrderID, "packer_id", req.PackerID)
	c.JSON(http.StatusOK, order)
	return nil
}

// RecordPack handles POST /orders/:orderId/packs
func (h *OrderHandler) RecordPack(c *gin.Context) error {
	var req PackRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	order, err := h.execution.RecordPack(c.Request.Context(), application.RecordPackCommand{
		OrderID:  c.Param("orderId"),
		SKU:      req.SKU,
		Bin:      req.Bin,
		Quantity: req.Quantity,
		Actor:    req.Actor,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, order)
	return nil
}

// ShipOrder handles POST /orders/:orderId/ship
func (h *OrderHandler) ShipOrder(c *gin.Context) error {
	var req ShipOrderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	order, err := h.execution.ShipOrder(c.Request.Context(), application.ShipOrderCommand{
		OrderID:        c.Param("orderId"),
		TrackingNumber: req.TrackingNumber,
		Actor:          req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Order shipped",
		"order_id", order.OrderID,
		"carrier", order.Carrier,
		"tracking_number", order.TrackingNumber,
	)
	c.JSON(http.StatusOK, order)
	return nil
}

// CancelOrder handles POST /orders/:orderId/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) error {
	var req CancelOrderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	order, err := h.allocation.CancelOrder(c.Request.Context(), application.CancelOrderCommand{
		OrderID: c.Param("orderId"),
		Reason:  req.Reason,
		Actor:   req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Order cancelled", "order_id", order.OrderID, "reason", req.Reason)
	c.JSON(http.StatusOK, order)
	return nil
}

// BackorderOrder handles POST /orders/:orderId/backorder
func (h *OrderHandler) BackorderOrder(c *gin.Context) error {
	var req BackorderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	order, err := h.allocation.BackorderOrder(c.Request.Context(), application.BackorderOrderCommand{
		OrderID: c.Param("orderId"),
		Reason:  req.Reason,
		Actor:   req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Order backordered", "order_id", order.OrderID, "reason", req.Reason)
	c.JSON(http.StatusOK, order)
	return nil
}

// ReleaseBackorder handles POST /orders/:orderId/release
func (h *OrderHandler) ReleaseBackorder(c *gin.Context) error {
	var req ReleaseBackorderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	order, err := h.allocation.ReleaseBackorder(c.Request.Context(), application.ReleaseBackorderCommand{
		OrderID: c.Param("orderId"),
		Actor:   req.Actor,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Backorder released", "order_id", order.OrderID)
	c.JSON(http.StatusOK, order)
	return nil
}
