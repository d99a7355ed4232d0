package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/core/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	productService *service.ProductService
	sellerService  *service.SellerService
	saleService    *service.SaleService
	store          Pinger
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

func NewHTTPHandler(
	productService *service.ProductService,
	sellerService *service.SellerService,
	saleService *service.SaleService,
	store Pinger,
) *HTTPHandler {
	return &HTTPHandler{
		productService: productService,
		sellerService:  sellerService,
		saleService:    saleService,
		store:          store,
	}
}

// Router builds the gin engine with every /api route registered.
func (h *HTTPHandler) Router(corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), gin.Logger(), CORS(corsOrigins))

	api := r.Group("/api")
	api.GET("/health", h.HealthCheck)

	products := api.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.POST("", h.CreateProduct)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}

	sellers := api.Group("/sellers")
	{
		sellers.GET("", h.ListSellers)
		sellers.POST("", h.CreateSeller)
		sellers.GET("/:id", h.GetSeller)
		sellers.PUT("/:id", h.UpdateSeller)
		sellers.DELETE("/:id", h.DeleteSeller)
	}

	sales := api.Group("/sales")
	{
		sales.GET("", h.ListSales)
		sales.POST("", h.CreateSale)
		sales.GET("/:id", h.GetSale)
		sales.DELETE("/:id", h.DeleteSale)
		sales.GET("/seller/:seller_id", h.ListSalesBySeller)
		sales.GET("/product/:product_id", h.ListSalesByProduct)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found", Code: CodeNotFound})
	})
	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			log.Printf("request %s: health check: %v", requestID(c), err)
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "database unavailable", Code: CodeServiceUnavailable})
			return
		}
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "ok"})
}

// Products

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	products, err := h.productService.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeList(c, products, len(products))
}

func (h *HTTPHandler) CreateProduct(c *gin.Context) {
	var req domain.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: product, Message: "product created successfully"})
}

func (h *HTTPHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: product})
}

func (h *HTTPHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch domain.ProductPatch
	if !h.bindJSON(c, &patch) {
		return
	}

	product, err := h.productService.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: product, Message: "product updated successfully"})
}

func (h *HTTPHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: product, Message: "product deleted successfully"})
}

// Sellers

func (h *HTTPHandler) ListSellers(c *gin.Context) {
	sellers, err := h.sellerService.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeList(c, sellers, len(sellers))
}

func (h *HTTPHandler) CreateSeller(c *gin.Context) {
	var req domain.CreateSellerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	seller, err := h.sellerService.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: seller, Message: "seller created successfully"})
}

func (h *HTTPHandler) GetSeller(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	seller, err := h.sellerService.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: seller})
}

func (h *HTTPHandler) UpdateSeller(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch domain.SellerPatch
	if !h.bindJSON(c, &patch) {
		return
	}

	seller, err := h.sellerService.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: seller, Message: "seller updated successfully"})
}

func (h *HTTPHandler) DeleteSeller(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	seller, err := h.sellerService.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: seller, Message: "seller deleted successfully"})
}

// Sales

func (h *HTTPHandler) CreateSale(c *gin.Context) {
	var req domain.CreateSaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := requireSaleRefs(req); err != nil {
		h.writeError(c, err)
		return
	}
	req.RequestID = c.GetHeader(IdempotencyKeyHeader)

	sale, err := h.saleService.CreateSale(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: sale, Message: "sale recorded successfully"})
}

func (h *HTTPHandler) GetSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: sale})
}

func (h *HTTPHandler) ListSales(c *gin.Context) {
	var filter domain.SaleFilter
	var ok bool
	if filter.SellerID, ok = queryID(c, "seller_id"); !ok {
		return
	}
	if filter.ProductID, ok = queryID(c, "product_id"); !ok {
		return
	}
	h.listSales(c, filter)
}

func (h *HTTPHandler) ListSalesBySeller(c *gin.Context) {
	id, ok := pathID(c, "seller_id")
	if !ok {
		return
	}
	h.listSales(c, domain.SaleFilter{SellerID: id})
}

func (h *HTTPHandler) ListSalesByProduct(c *gin.Context) {
	id, ok := pathID(c, "product_id")
	if !ok {
		return
	}
	h.listSales(c, domain.SaleFilter{ProductID: id})
}

func (h *HTTPHandler) listSales(c *gin.Context, filter domain.SaleFilter) {
	sales, err := h.saleService.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeList(c, sales, len(sales))
}

func (h *HTTPHandler) DeleteSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sale, err := h.saleService.DeleteSale(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: sale, Message: "sale deleted successfully"})
}

// requireSaleRefs rejects a sale body that names no seller or product.
func requireSaleRefs(req domain.CreateSaleRequest) error {
	fields := make(map[string]string)
	if req.SellerID <= 0 {
		fields["seller_id"] = "this field is required"
	}
	if req.ProductID <= 0 {
		fields["product_id"] = "this field is required"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	status, code := httpStatus(domain.KindOf(err))
	resp := ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		Details: errorDetails(err),
	}
	if status == http.StatusInternalServerError {
		log.Printf("request %s: %s %s: %v", requestID(c), c.Request.Method, c.FullPath(), err)
		resp.Error = internalErrorMessage
	}
	c.JSON(status, resp)
}

func writeList[T any](c *gin.Context, items []T, count int) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: items, Count: &count})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeInvalidID(c, name)
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive id query parameter; absent means 0.
func queryID(c *gin.Context, name string) (int64, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeInvalidID(c, name)
		return 0, false
	}
	return id, true
}

func writeInvalidID(c *gin.Context, name string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid " + name,
		Code:    CodeInvalidInput,
		Details: map[string]string{name: "must be a positive integer"},
	})
}
