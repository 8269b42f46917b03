package openapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/api"
	"github.com/wms-platform/fulfillment-service/pkg/contracts/openapi"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

const (
	openAPISpecPath = "../../../docs/openapi.yaml"

	// Must match the servers entry in the document so route matching works
	baseURL = "http://localhost:8080"
)

func newValidator(t *testing.T) *openapi.Validator {
	t.Helper()

	validator, err := openapi.NewValidator(openAPISpecPath)
	require.NoError(t, err, "OpenAPI spec should load and validate")
	require.NotNil(t, validator)
	return validator
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, baseURL+path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func jsonResponse(t *testing.T, status int, payload interface{}) *http.Response {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

func pendingOrder() application.OrderDTO {
	now := time.Now().UTC()
	return application.OrderDTO{
		OrderID:    "ORD-1001",
		CustomerID: "CUST-42",
		Status:     "PENDING",
		Progress:   0,
		Items: []application.OrderItemDTO{
			{SKU: "SKU-WIDGET", Bin: "A-01-03", ProductName: "Widget", Quantity: 2},
			{SKU: "SKU-GADGET", Bin: "B-02-01", ProductName: "Gadget", Quantity: 5},
		},
		NextStatuses: []string{"PICKING", "CANCELLED", "BACKORDER"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSpecDocument(t *testing.T) {
	validator := newValidator(t)

	doc := validator.GetDocument()
	require.NotNil(t, doc)
	assert.Equal(t, "Fulfillment Service API", doc.Info.Title)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.NotZero(t, doc.Paths.Len())
}

func TestRequiredPathsExist(t *testing.T) {
	validator := newValidator(t)
	paths := validator.GetPaths()

	required := []string{
		"/health",
		"/ready",
		"/api/v1/orders",
		"/api/v1/orders/{orderId}",
		"/api/v1/orders/{orderId}/history",
		"/api/v1/orders/{orderId}/claim",
		"/api/v1/orders/{orderId}/picks",
		"/api/v1/orders/{orderId}/picks/undo",
		"/api/v1/orders/{orderId}/packing",
		"/api/v1/orders/{orderId}/packs",
		"/api/v1/orders/{orderId}/ship",
		"/api/v1/orders/{orderId}/cancel",
		"/api/v1/orders/{orderId}/backorder",
		"/api/v1/orders/{orderId}/release",
		"/api/v1/exceptions",
		"/api/v1/exceptions/{exceptionId}",
		"/api/v1/exceptions/{exceptionId}/review",
		"/api/v1/exceptions/{exceptionId}/approve",
		"/api/v1/exceptions/{exceptionId}/reject",
		"/api/v1/exceptions/{exceptionId}/resolve",
		"/api/v1/exceptions/{exceptionId}/cancel",
		"/api/v1/inventory",
		"/api/v1/inventory/receive",
		"/api/v1/inventory/adjust",
		"/api/v1/inventory/{sku}",
		"/api/v1/inventory/{sku}/history",
		"/api/v1/workers",
		"/api/v1/workers/{workerId}",
		"/api/v1/workers/{workerId}/activate",
		"/api/v1/workers/{workerId}/deactivate",
	}

	for _, path := range required {
		assert.Contains(t, paths, path)
	}
}

func TestOperationIDs(t *testing.T) {
	validator := newValidator(t)

	cases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "/api/v1/orders", "createOrder"},
		{http.MethodGet, "/api/v1/orders/ORD-1001", "getOrder"},
		{http.MethodPost, "/api/v1/orders/ORD-1001/claim", "claimOrder"},
		{http.MethodPost, "/api/v1/orders/ORD-1001/picks", "recordPick"},
		{http.MethodPost, "/api/v1/orders/ORD-1001/picks/undo", "undoPick"},
		{http.MethodPost, "/api/v1/orders/ORD-1001/ship", "shipOrder"},
		{http.MethodPost, "/api/v1/exceptions/EXC-1/resolve", "resolveException"},
		{http.MethodGet, "/api/v1/inventory/SKU-WIDGET/history?bin=A-01-03", "getInventoryHistory"},
		{http.MethodPut, "/api/v1/workers/WRK-PICK-01/activate", "activateWorker"},
	}

	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, baseURL+tc.path, nil)
			opID, err := validator.GetOperationID(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, opID)
		})
	}
}

func TestValidateClaimRequest(t *testing.T) {
	validator := newValidator(t)

	t.Run("valid", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/v1/orders/ORD-1001/claim", map[string]interface{}{
			"pickerId": "WRK-PICK-01",
			"actor":    "WRK-PICK-01",
		})
		assert.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("missing picker", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/v1/orders/ORD-1001/claim", map[string]interface{}{
			"actor": "WRK-PICK-01",
		})
		assert.Error(t, validator.ValidateRequest(req))
	})
}

func TestValidateCreateOrderRequest(t *testing.T) {
	validator := newValidator(t)

	t.Run("valid", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
			"orderId":    "ORD-1001",
			"customerId": "CUST-42",
			"items": []map[string]interface{}{
				{"sku": "SKU-WIDGET", "bin": "A-01-03", "productName": "Widget", "quantity": 2},
			},
			"shippingMethod": "GROUND",
			"carrier":        "UPS",
		})
		assert.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("empty items", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
			"customerId": "CUST-42",
			"items":      []map[string]interface{}{},
		})
		assert.Error(t, validator.ValidateRequest(req))
	})
}

func TestValidatePickRequest(t *testing.T) {
	validator := newValidator(t)

	t.Run("valid", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/v1/orders/ORD-1001/picks", map[string]interface{}{
			"sku":      "SKU-WIDGET",
			"bin":      "A-01-03",
			"quantity": 2,
			"actor":    "WRK-PICK-01",
		})
		assert.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("zero quantity", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/v1/orders/ORD-1001/picks", map[string]interface{}{
			"sku":      "SKU-WIDGET",
			"bin":      "A-01-03",
			"quantity": 0,
			"actor":    "WRK-PICK-01",
		})
		assert.Error(t, validator.ValidateRequest(req))
	})
}

func TestInventoryHistoryRequiresBin(t *testing.T) {
	validator := newValidator(t)

	req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/inventory/SKU-WIDGET/history?bin=A-01-03", nil)
	assert.NoError(t, validator.ValidateRequest(req))

	req = httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/inventory/SKU-WIDGET/history", nil)
	assert.Error(t, validator.ValidateRequest(req))
}

func TestValidateOrderResponse(t *testing.T) {
	validator := newValidator(t)
	req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/orders/ORD-1001", nil)

	t.Run("valid", func(t *testing.T) {
		resp := jsonResponse(t, http.StatusOK, pendingOrder())
		assert.NoError(t, validator.ValidateResponse(req, resp))
	})

	t.Run("missing status", func(t *testing.T) {
		resp := jsonResponse(t, http.StatusOK, map[string]interface{}{
			"orderId":    "ORD-1001",
			"customerId": "CUST-42",
		})
		assert.Error(t, validator.ValidateResponse(req, resp))
	})
}

func TestValidateClaimExchange(t *testing.T) {
	validator := newValidator(t)

	req := jsonRequest(t, http.MethodPost, "/api/v1/orders/ORD-1001/claim", map[string]interface{}{
		"pickerId": "WRK-PICK-01",
	})

	claimed := pendingOrder()
	claimed.Status = "PICKING"
	claimed.PickerID = "WRK-PICK-01"
	claimed.NextStatuses = []string{"PICKED", "CANCELLED"}

	resp := jsonResponse(t, http.StatusOK, claimed)
	assert.NoError(t, validator.ValidateRequestResponse(req, resp))
}

func TestValidateListOrdersResponse(t *testing.T) {
	validator := newValidator(t)
	req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/orders?page=1&pageSize=20", nil)

	page := api.NewPageResponse([]application.OrderDTO{pendingOrder()}, 1, 20, 1)
	resp := jsonResponse(t, http.StatusOK, page)
	assert.NoError(t, validator.ValidateResponse(req, resp))
}

func TestValidateErrorResponse(t *testing.T) {
	validator := newValidator(t)
	req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/orders/ORD-MISSING", nil)

	resp := jsonResponse(t, http.StatusNotFound, middleware.APIErrorResponse{
		Code:      "NOT_FOUND",
		Message:   "order ORD-MISSING not found",
		RequestID: "req-123",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      "/api/v1/orders/ORD-MISSING",
	})
	assert.NoError(t, validator.ValidateResponse(req, resp))
}
