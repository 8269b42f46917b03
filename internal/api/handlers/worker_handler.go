package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/api"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// WorkerHandler handles HTTP requests for worker registration
type WorkerHandler struct {
	workers *application.WorkerService
	logger  *logging.Logger
}

// NewWorkerHandler creates a new WorkerHandler
func NewWorkerHandler(workers *application.WorkerService, logger *logging.Logger) *WorkerHandler {
	return &WorkerHandler{
		workers: workers,
		logger:  logger,
	}
}

// RegisterRoutes registers the worker routes
func (h *WorkerHandler) RegisterRoutes(r *gin.RouterGroup) {
	workers := r.Group("/workers")
	{
		workers.POST("", middleware.WrapHandler(h.RegisterWorker))
		workers.GET("", middleware.WrapHandler(h.ListWorkers))
		workers.GET("/:workerId", middleware.WrapHandler(h.GetWorker))
		workers.PUT("/:workerId/activate", middleware.WrapHandler(h.ActivateWorker))
		workers.PUT("/:workerId/deactivate", middleware.WrapHandler(h.DeactivateWorker))
	}
}

// RegisterWorkerRequest is the request body for registering a worker
type RegisterWorkerRequest struct {
	WorkerID string   `json:"workerId" binding:"required,worker_id"`
	Name     string   `json:"name" binding:"required,safe_string"`
	Roles    []string `json:"roles" binding:"required,min=1"`
}

// RegisterWorker handles POST /workers
func (h *WorkerHandler) RegisterWorker(c *gin.Context) error {
	var req RegisterWorkerRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	worker, err := h.workers.RegisterWorker(c.Request.Context(), application.RegisterWorkerCommand{
		WorkerID: req.WorkerID,
		Name:     req.Name,
		Roles:    req.Roles,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Worker registered", "worker_id", worker.WorkerID, "roles", worker.Roles)
	c.JSON(http.StatusCreated, worker)
	return nil
}

// GetWorker handles GET /workers/:workerId
func (h *WorkerHandler) GetWorker(c *gin.Context) error {
	worker, err := h.workers.GetWorker(c.Request.Context(), application.GetWorkerQuery{
		WorkerID: c.Param("workerId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, worker)
	return nil
}

// ListWorkers handles GET /workers
func (h *WorkerHandler) ListWorkers(c *gin.Context) error {
	page := api.ParsePagination(c)

	workers, total, err := h.workers.ListWorkers(c.Request.Context(), application.ListWorkersQuery{
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, api.NewPageResponse(workers, page.Page, page.PageSize, total))
	return nil
}

// ActivateWorker handles PUT /workers/:workerId/activate
func (h *WorkerHandler) ActivateWorker(c *gin.Context) error {
	worker, err := h.workers.SetWorkerActive(c.Request.Context(), application.SetWorkerActiveCommand{
		WorkerID: c.Param("workerId"),
		Active:   true,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, worker)
	return nil
}

// DeactivateWorker handles PUT /workers/:workerId/deactivate
func (h *WorkerHandler) DeactivateWorker(c *gin.Context) error {
	worker, err := h.workers.SetWorkerActive(c.Request.Context(), application.SetWorkerActiveCommand{
		WorkerID: c.Param("workerId"),
		Active:   false,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, worker)
	return nil
}
