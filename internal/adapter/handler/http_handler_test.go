package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-inventory/internal/adapter/storage"
	"github.com/rl1809/sales-inventory/internal/core/service"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Count   *int              `json:"count"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

type idOnly struct {
	ID    int64  `json:"id"`
	Stock int    `json:"stock"`
	Total string `json:"total_price"`
}

// memCache is a CacheRepository kept in process for handler tests.
type memCache struct {
	mu      sync.Mutex
	pending map[string]bool
	done    map[string]int64
}

func newMemCache() *memCache {
	return &memCache{pending: map[string]bool{}, done: map[string]int64{}}
}

func (m *memCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.done[key]; ok || m.pending[key] {
		return false, nil
	}
	m.pending[key] = true
	return true, nil
}

func (m *memCache) CompleteIdempotency(_ context.Context, key string, saleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
	m.done[key] = saleID
	return nil
}

func (m *memCache) GetIdempotentResult(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.done[key]
	return id, ok, nil
}

func (m *memCache) ReleaseIdempotency(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storage.NewMemoryAdapter()
	h := NewHTTPHandler(
		service.NewProductService(db),
		service.NewSellerService(db),
		service.NewSaleService(db, newMemCache()),
		db,
	)
	return h.Router(nil)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func seedHTTP(t *testing.T, r http.Handler, stock int) (sellerID, productID int64) {
	t.Helper()

	w, env := doJSON(t, r, http.MethodPost, "/api/sellers", map[string]interface{}{
		"name": "Juan Perez", "email": "juan@example.com", "phone": "555-123-4567",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var seller idOnly
	decodeData(t, env, &seller)

	w, env = doJSON(t, r, http.MethodPost, "/api/products", map[string]interface{}{
		"name": "Laptop", "price": 25.00, "stock": stock,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product idOnly
	decodeData(t, env, &product)

	return seller.ID, product.ID
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t)

	w, env := doJSON(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthCheck_StoreDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := storage.NewMemoryAdapter()
	h := NewHTTPHandler(
		service.NewProductService(db),
		service.NewSellerService(db),
		service.NewSaleService(db, nil),
		downStore{},
	)

	w, env := doJSON(t, h.Router(nil), http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, CodeServiceUnavailable, env.Code)
}

func TestRequestID_Echoed(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/health", nil, RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	w, env := doJSON(t, r, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "route not found", env.Error)
}

func TestCreateSale_HTTP(t *testing.T) {
	r := newTestRouter(t)
	sellerID, productID := seedHTTP(t, r, 10)

	w, env := doJSON(t, r, http.MethodPost, "/api/sales", map[string]interface{}{
		"seller_id": sellerID, "product_id": productID, "quantity": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var sale idOnly
	decodeData(t, env, &sale)
	assert.Equal(t, "75", sale.Total)

	w, env = doJSON(t, r, http.MethodGet, "/api/products/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var product idOnly
	decodeData(t, env, &product)
	assert.Equal(t, 7, product.Stock)

	w, env = doJSON(t, r, http.MethodGet, "/api/sales/seller/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)
}

func TestCreateSale_HTTPErrors(t *testing.T) {
	r := newTestRouter(t)
	sellerID, productID := seedHTTP(t, r, 2)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{
			name:   "insufficient stock",
			body:   map[string]interface{}{"seller_id": sellerID, "product_id": productID, "quantity": 5},
			status: http.StatusConflict,
			code:   CodeInsufficientStock,
		},
		{
			name:   "zero quantity",
			body:   map[string]interface{}{"seller_id": sellerID, "product_id": productID, "quantity": 0},
			status: http.StatusBadRequest,
			code:   CodeInvalidInput,
		},
		{
			name:   "unknown seller",
			body:   map[string]interface{}{"seller_id": 99, "product_id": productID, "quantity": 1},
			status: http.StatusNotFound,
			code:   CodeNotFound,
		},
		{
			name:   "missing references",
			body:   map[string]interface{}{"quantity": 1},
			status: http.StatusBadRequest,
			code:   CodeValidation,
		},
		{
			name:   "malformed body",
			body:   `{"seller_id": "x"`,
			status: http.StatusBadRequest,
			code:   CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, http.MethodPost, "/api/sales", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
		})
	}

	w, env := doJSON(t, r, http.MethodGet, "/api/products/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var product idOnly
	decodeData(t, env, &product)
	assert.Equal(t, 2, product.Stock)
}

func TestCreateSale_IdempotencyKey(t *testing.T) {
	r := newTestRouter(t)
	sellerID, productID := seedHTTP(t, r, 10)
	body := map[string]interface{}{"seller_id": sellerID, "product_id": productID, "quantity": 2}

	w1, env1 := doJSON(t, r, http.MethodPost, "/api/sales", body, IdempotencyKeyHeader, "key-1")
	require.Equal(t, http.StatusCreated, w1.Code)
	w2, env2 := doJSON(t, r, http.MethodPost, "/api/sales", body, IdempotencyKeyHeader, "key-1")
	require.Equal(t, http.StatusCreated, w2.Code)

	var s1, s2 idOnly
	decodeData(t, env1, &s1)
	decodeData(t, env2, &s2)
	assert.Equal(t, s1.ID, s2.ID)

	_, env := doJSON(t, r, http.MethodGet, "/api/sales", nil)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)
}

func TestProductValidation_HTTP(t *testing.T) {
	r := newTestRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/products", map[string]interface{}{"name": "A", "price": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, env.Code)
	assert.Equal(t, "minimum length is 2", env.Details["name"])
	assert.Equal(t, "must be greater than 0", env.Details["price"])
}

func TestFieldTypeErrors_HTTP(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name    string
		path    string
		body    string
		details map[string]string
	}{
		{
			name:    "fractional stock",
			path:    "/api/products",
			body:    `{"name":"Mouse","price":10,"stock":2.5}`,
			details: map[string]string{"stock": "must be an integer"},
		},
		{
			name: "bad price with other failing fields",
			path: "/api/products",
			body: `{"name":"M","price":"abc","stock":-1}`,
			details: map[string]string{
				"price": "must be a number",
				"name":  "minimum length is 2",
				"stock": "must be at least 0",
			},
		},
		{
			name:    "numeric seller name",
			path:    "/api/sellers",
			body:    `{"name":42,"email":"juan@example.com"}`,
			details: map[string]string{"name": "must be a string"},
		},
		{
			name:    "fractional sale quantity",
			path:    "/api/sales",
			body:    `{"seller_id":1,"product_id":1,"quantity":1.5}`,
			details: map[string]string{"quantity": "must be an integer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, CodeValidation, env.Code)
			assert.Equal(t, tt.details, env.Details)
		})
	}

	_, env := doJSON(t, r, http.MethodGet, "/api/products", nil)
	require.NotNil(t, env.Count)
	assert.Equal(t, 0, *env.Count)
}

func TestProductUpdateAndDelete_HTTP(t *testing.T) {
	r := newTestRouter(t)
	sellerID, productID := seedHTTP(t, r, 10)

	w, env := doJSON(t, r, http.MethodPut, "/api/products/1", map[string]interface{}{"stock": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var product idOnly
	decodeData(t, env, &product)
	assert.Equal(t, 4, product.Stock)

	w, _ = doJSON(t, r, http.MethodPost, "/api/sales", map[string]interface{}{
		"seller_id": sellerID, "product_id": productID, "quantity": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = doJSON(t, r, http.MethodDelete, "/api/products/1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeReferenceConstraint, env.Code)

	w, env = doJSON(t, r, http.MethodDelete, "/api/sellers/1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeReferenceConstraint, env.Code)

	w, _ = doJSON(t, r, http.MethodDelete, "/api/sales/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, r, http.MethodDelete, "/api/products/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = doJSON(t, r, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, env.Code)
}

func TestSellerDuplicateEmail_HTTP(t *testing.T) {
	r := newTestRouter(t)
	seedHTTP(t, r, 1)

	w, env := doJSON(t, r, http.MethodPost, "/api/sellers", map[string]interface{}{
		"name": "Other", "email": "juan@example.com",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeDuplicateEntry, env.Code)
}

func TestInvalidPathID(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/products/abc", "/api/sellers/0", "/api/sales/-1", "/api/sales?seller_id=x"} {
		w, env := doJSON(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, CodeInvalidInput, env.Code, path)
	}
}

func TestListEndpoints_EmptyArrays(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/products", "/api/sellers", "/api/sales"} {
		w, env := doJSON(t, r, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, "[]", string(env.Data), path)
		require.NotNil(t, env.Count)
		assert.Equal(t, 0, *env.Count)
	}
}
