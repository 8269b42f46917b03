package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
	"github.com/wms-platform/fulfillment-service/pkg/outbox"
)

type stubOrderRepo struct {
	SaveFn     func(ctx context.Context, order *domain.Order) error
	FindByIDFn func(ctx context.Context, orderID string) (*domain.Order, error)
}

func (s *stubOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order *domain.Order, expectedStatus domain.OrderStatus) error {
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if s.FindByIDFn != nil {
		return s.FindByIDFn(ctx, orderID)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
}

func (s *stubOrderRepo) FindByStatus(ctx context.Context, status domain.OrderStatus, page, pageSize int64) ([]*domain.Order, int64, error) {
	return nil, 0, nil
}

func (s *stubOrderRepo) FindByPicker(ctx context.Context, pickerID string, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) List(ctx context.Context, page, pageSize int64) ([]*domain.Order, int64, error) {
	return nil, 0, nil
}

func (s *stubOrderRepo) CountActiveByPicker(ctx context.Context, pickerID string) (int64, error) {
	return 0, nil
}

type stubOutboxRepo struct {
	outbox.Repository
	saved []*outbox.OutboxEvent
}

func (s *stubOutboxRepo) SaveAll(_ context.Context, events []*outbox.OutboxEvent) error {
	s.saved = append(s.saved, events...)
	return nil
}

// stubTx runs the transaction body directly; these tests assert status
// mapping, not commit behavior
type stubTx struct{}

func (stubTx) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

func newOrderRouter(orders domain.OrderRepository) (*gin.Engine, *stubOutboxRepo) {
	logger := logging.New(logging.DefaultConfig("test"))
	outboxRepo := &stubOutboxRepo{}
	deps := application.ServiceDependencies{
		Tx:           stubTx{},
		Orders:       orders,
		Outbox:       outboxRepo,
		EventFactory: cloudevents.NewEventFactory("fulfillment-service-test"),
		Logger:       logger,
		Metrics:      metrics.New(metrics.DefaultConfig("test")),
	}
	allocation := application.NewOrderAllocationService(deps, application.DefaultMaxActiveOrders)
	execution := application.NewOrderExecutionService(deps)
	handler := NewOrderHandler(allocation, execution, logger)

	middleware.InitValidator()
	router := gin.New()
	router.Use(middleware.ErrorHandler(logger.Logger))
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, outboxRepo
}

func pickingOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder("ORD-7", "CUST-1", []domain.OrderItem{
		{SKU: "SKU-WIDGET", Bin: "A-01-03", ProductName: "Widget", Quantity: 2},
	}, "GROUND", "UPS")
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	if err := order.Claim("picker-1"); err != nil {
		t.Fatalf("claim order: %v", err)
	}
	order.ClearDomainEvents()
	return order
}

func requestJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) middleware.APIErrorResponse {
	t.Helper()
	var body middleware.APIErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestCreateOrderHandler_Created(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, outboxRepo := newOrderRouter(&stubOrderRepo{})

	resp := requestJSON(t, router, http.MethodPost, "/api/v1/orders", map[string]any{
		"orderId":    "ORD-7",
		"customerId": "CUST-1",
		"items": []map[string]any{
			{"sku": "SKU-WIDGET", "bin": "A-01-03", "quantity": 2},
		},
		"shippingMethod": "GROUND",
		"carrier":        "UPS",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var order application.OrderDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.OrderID != "ORD-7" || order.Status != string(domain.StatusPending) {
		t.Fatalf("unexpected order %s in status %s", order.OrderID, order.Status)
	}
	if len(outboxRepo.saved) == 0 {
		t.Fatalf("expected the created event to be staged in the outbox")
	}
}

func TestCreateOrderHandler_MissingCustomer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, _ := newOrderRouter(&stubOrderRepo{})

	resp := requestJSON(t, router, http.MethodPost, "/api/v1/orders", map[string]any{
		"items": []map[string]any{
			{"sku": "SKU-WIDGET", "bin": "A-01-03", "quantity": 2},
		},
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Code != errors.CodeValidationError {
		t.Fatalf("expected %s, got %s", errors.CodeValidationError, body.Code)
	}
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, _ := newOrderRouter(&stubOrderRepo{})

	resp := requestJSON(t, router, http.MethodGet, "/api/v1/orders/ORD-MISSING", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Code != errors.CodeNotFound {
		t.Fatalf("expected %s, got %s", errors.CodeNotFound, body.Code)
	}
}

func TestClaimOrderHandler_AlreadyClaimed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	order := pickingOrder(t)
	router, _ := newOrderRouter(&stubOrderRepo{
		FindByIDFn: func(_ context.Context, _ string) (*domain.Order, error) {
			return order, nil
		},
	})

	resp := requestJSON(t, router, http.MethodPost, "/api/v1/orders/ORD-7/claim", map[string]any{
		"pickerId": "WRK-PICK-02",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	body := decodeError(t, resp)
	if body.Code != errors.CodeConflict {
		t.Fatalf("expected %s, got %s", errors.CodeConflict, body.Code)
	}
	if !strings.Contains(body.Message, "only PENDING orders can be claimed") {
		t.Fatalf("message should explain the claim rule: %q", body.Message)
	}
}

func TestShipOrderHandler_InvalidTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	order := pickingOrder(t)
	router, _ := newOrderRouter(&stubOrderRepo{
		FindByIDFn: func(_ context.Context, _ string) (*domain.Order, error) {
			return order, nil
		},
	})

	resp := requestJSON(t, router, http.MethodPost, "/api/v1/orders/ORD-7/ship", map[string]any{
		"trackingNumber": "1Z999AA10123456784",
		"actor":          "shipping-desk",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	body := decodeError(t, resp)
	if body.Code != errors.CodeInvalidTransition {
		t.Fatalf("expected %s, got %s", errors.CodeInvalidTransition, body.Code)
	}
	if !strings.Contains(body.Message, "PICKING") || !strings.Contains(body.Message, "SHIPPED") {
		t.Fatalf("message should name the attempted edge: %q", body.Message)
	}
}
