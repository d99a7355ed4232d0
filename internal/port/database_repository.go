package port

import (
	"context"

	"github.com/rl1809/sales-inventory/internal/core/domain"
)

// Lookups return (nil, nil) when the row does not exist.

type ProductRepository interface {
	CreateProduct(ctx context.Context, product domain.Product) (int64, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	// ListProducts returns all products ordered by name
	ListProducts(ctx context.Context) ([]domain.Product, error)
	// UpdateProduct writes only the columns set in patch, so a name or price
	// change never rewrites stock a concurrent sale has decremented
	UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) error
	// DeleteProduct fails with *domain.ReferenceConstraintError while sales reference the product
	DeleteProduct(ctx context.Context, id int64) error
}

type SellerRepository interface {
	// CreateSeller fails with *domain.DuplicateEntryError on an email collision
	CreateSeller(ctx context.Context, seller domain.Seller) (int64, error)
	GetSeller(ctx context.Context, id int64) (*domain.Seller, error)
	// ListSellers returns all sellers ordered by name
	ListSellers(ctx context.Context) ([]domain.Seller, error)
	UpdateSeller(ctx context.Context, seller domain.Seller) error
	DeleteSeller(ctx context.Context, id int64) error
}

type SaleRepository interface {
	// GetSale returns the sale joined with seller and product display fields
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	// ListSales returns matching sales, newest first
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
	DeleteSale(ctx context.Context, id int64) error

	// BeginSaleTx opens the transaction a sale is recorded in
	BeginSaleTx(ctx context.Context) (SaleTx, error)
}

// SaleTx is a scoped transaction handle. Rollback after Commit is a no-op, so
// callers defer Rollback right after BeginSaleTx.
type SaleTx interface {
	GetSeller(ctx context.Context, id int64) (*domain.Seller, error)

	// GetProduct reads the product and locks it until the transaction ends
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// DecrementStockIfSufficient subtracts quantity only while stock >= quantity,
	// returns false if the condition no longer holds
	DecrementStockIfSufficient(ctx context.Context, productID int64, quantity int) (bool, error)

	// InsertSale persists the sale and returns its id
	InsertSale(ctx context.Context, sale domain.Sale) (int64, error)

	Commit() error
	Rollback() error
}

type DatabaseRepository interface {
	ProductRepository
	SellerRepository
	SaleRepository

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
