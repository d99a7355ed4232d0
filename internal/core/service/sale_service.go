package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/port"
)

const idempotencyKeyPrefix = "sale:idempotency:"

type SaleService struct {
	db    port.SaleRepository
	cache port.CacheRepository
	now   func() time.Time
}

// NewSaleService builds the sale service. cache may be nil, in which case
// request ids are ignored.
func NewSaleService(db port.SaleRepository, cache port.CacheRepository) *SaleService {
	return &SaleService{
		db:    db,
		cache: cache,
		now:   time.Now,
	}
}

// CreateSale records a sale of quantity units and takes them out of stock in a
// single transaction. The total is computed from the product price read inside
// that transaction.
func (s *SaleService) CreateSale(ctx context.Context, req domain.CreateSaleRequest) (*domain.Sale, error) {
	if req.RequestID == "" || s.cache == nil {
		return s.createSale(ctx, req)
	}

	key := idempotencyKeyPrefix + req.RequestID
	ok, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return s.replay(ctx, key, req)
	}

	sale, err := s.createSale(ctx, req)
	if err != nil {
		if releaseErr := s.cache.ReleaseIdempotency(ctx, key); releaseErr != nil {
			log.Printf("release idempotency key %s: %v", key, releaseErr)
		}
		return nil, err
	}

	if err := s.cache.CompleteIdempotency(ctx, key, sale.ID); err != nil {
		log.Printf("complete idempotency key %s for sale %d: %v", key, sale.ID, err)
	}
	return sale, nil
}

// replay returns the sale already recorded under key. A key reused with a
// different seller, product or quantity is rejected.
func (s *SaleService) replay(ctx context.Context, key string, req domain.CreateSaleRequest) (*domain.Sale, error) {
	saleID, found, err := s.cache.GetIdempotentResult(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if !found {
		return nil, &domain.DuplicateRequestError{Key: key}
	}

	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.SellerID != req.SellerID || sale.ProductID != req.ProductID || sale.Quantity != req.Quantity {
		return nil, &domain.DuplicateRequestError{Key: key, Mismatch: true}
	}
	return sale, nil
}

func (s *SaleService) createSale(ctx context.Context, req domain.CreateSaleRequest) (*domain.Sale, error) {
	tx, err := s.db.BeginSaleTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin sale tx: %w", err)
	}
	defer tx.Rollback()

	seller, err := tx.GetSeller(ctx, req.SellerID)
	if err != nil {
		return nil, fmt.Errorf("get seller: %w", err)
	}
	if seller == nil {
		return nil, domain.NotFound(domain.EntitySeller, req.SellerID)
	}

	product, err := tx.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, domain.NotFound(domain.EntityProduct, req.ProductID)
	}

	if req.Quantity <= 0 {
		return nil, domain.InvalidInput("quantity", "must be a positive integer")
	}
	if product.Stock < req.Quantity {
		return nil, &domain.InsufficientStockError{Available: product.Stock, Requested: req.Quantity}
	}

	ok, err := tx.DecrementStockIfSufficient(ctx, product.ID, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	if !ok {
		// stock moved between the read and the conditional update
		return nil, &domain.InsufficientStockError{Available: 0, Requested: req.Quantity}
	}

	sale := domain.Sale{
		SellerID:   seller.ID,
		ProductID:  product.ID,
		Quantity:   req.Quantity,
		TotalPrice: domain.SaleTotal(product.Price, req.Quantity),
		SaleDate:   s.now().UTC().Truncate(time.Second),
	}

	sale.ID, err = tx.InsertSale(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}

	price := product.Price
	sale.SellerName = seller.Name
	sale.ProductName = product.Name
	sale.ProductPrice = &price
	return &sale, nil
}

func (s *SaleService) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := s.db.GetSale(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, domain.NotFound(domain.EntitySale, id)
	}
	return sale, nil
}

func (s *SaleService) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	sales, err := s.db.ListSales(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// DeleteSale removes the sale record only; stock is not restored.
func (s *SaleService) DeleteSale(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.DeleteSale(ctx, id); err != nil {
		return nil, fmt.Errorf("delete sale: %w", err)
	}
	return sale, nil
}
