package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-inventory/internal/core/domain"
)

func getPostgresAdapter(t *testing.T) *PostgresAdapter {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=sales port=5432 sslmode=disable"
	}

	adapter, err := OpenPostgres(dsn)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	if err := adapter.Ping(context.Background()); err != nil {
		adapter.Close()
		t.Skipf("PostgreSQL not available: %v", err)
	}

	require.NoError(t, adapter.Migrate(context.Background()))
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

func seedPostgres(t *testing.T, ctx context.Context, adapter *PostgresAdapter, stock int) (sellerID, productID int64) {
	t.Helper()

	sellerID, err := adapter.CreateSeller(ctx, domain.Seller{
		Name:  "Pg Seller",
		Email: fmt.Sprintf("pg-%s@example.com", uuid.NewString()),
	})
	require.NoError(t, err)

	productID, err = adapter.CreateProduct(ctx, domain.Product{
		Name:  "pg-product-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("25.00"),
		Stock: stock,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		db := adapter.db.WithContext(ctx)
		db.Exec(`DELETE FROM sales WHERE seller_id = ? OR product_id = ?`, sellerID, productID)
		db.Exec(`DELETE FROM products WHERE id = ?`, productID)
		db.Exec(`DELETE FROM sellers WHERE id = ?`, sellerID)
	})
	return sellerID, productID
}

func pgRecordSale(ctx context.Context, adapter *PostgresAdapter, sellerID, productID int64, quantity int) (bool, error) {
	tx, err := adapter.BeginSaleTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	product, err := tx.GetProduct(ctx, productID)
	if err != nil || product == nil {
		return false, err
	}
	ok, err := tx.DecrementStockIfSufficient(ctx, productID, quantity)
	if err != nil || !ok {
		return false, err
	}
	_, err = tx.InsertSale(ctx, domain.Sale{
		SellerID:   sellerID,
		ProductID:  productID,
		Quantity:   quantity,
		TotalPrice: domain.SaleTotal(product.Price, quantity),
		SaleDate:   time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func TestPostgresSaleTx_Commit(t *testing.T) {
	adapter := getPostgresAdapter(t)
	ctx := context.Background()
	sellerID, productID := seedPostgres(t, ctx, adapter, 10)

	ok, err := pgRecordSale(ctx, adapter, sellerID, productID, 3)
	require.NoError(t, err)
	require.True(t, ok)

	product, err := adapter.GetProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 7, product.Stock)

	sales, err := adapter.ListSales(ctx, domain.SaleFilter{SellerID: sellerID})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].TotalPrice.Equal(decimal.RequireFromString("75")))
	assert.Equal(t, "Pg Seller", sales[0].SellerName)

	sale, err := adapter.GetSale(ctx, sales[0].ID)
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.Equal(t, productID, sale.ProductID)
}

func TestPostgresSaleTx_InsufficientStock(t *testing.T) {
	adapter := getPostgresAdapter(t)
	ctx := context.Background()
	sellerID, productID := seedPostgres(t, ctx, adapter, 2)

	ok, err := pgRecordSale(ctx, adapter, sellerID, productID, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	product, err := adapter.GetProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 2, product.Stock)
}

func TestPostgresSaleTx_Concurrent(t *testing.T) {
	adapter := getPostgresAdapter(t)
	ctx := context.Background()
	sellerID, productID := seedPostgres(t, ctx, adapter, 20)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := pgRecordSale(ctx, adapter, sellerID, productID, 1); err == nil && ok {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), successCount.Load())
	product, err := adapter.GetProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)
}

func TestPostgresDeleteProduct_ReferencedBySale(t *testing.T) {
	adapter := getPostgresAdapter(t)
	ctx := context.Background()
	sellerID, productID := seedPostgres(t, ctx, adapter, 5)

	ok, err := pgRecordSale(ctx, adapter, sellerID, productID, 1)
	require.NoError(t, err)
	require.True(t, ok)

	err = adapter.DeleteProduct(ctx, productID)
	assert.True(t, errors.Is(err, domain.ErrReferenceConstraint), "got %v", err)
}

func TestPostgresCreateSeller_DuplicateEmail(t *testing.T) {
	adapter := getPostgresAdapter(t)
	ctx := context.Background()
	sellerID, _ := seedPostgres(t, ctx, adapter, 0)

	existing, err := adapter.GetSeller(ctx, sellerID)
	require.NoError(t, err)

	_, err = adapter.CreateSeller(ctx, domain.Seller{Name: "Copy", Email: existing.Email})
	assert.True(t, errors.Is(err, domain.ErrDuplicateEntry), "got %v", err)
}

func TestPostgresGetProduct_NotFound(t *testing.T) {
	adapter := getPostgresAdapter(t)

	product, err := adapter.GetProduct(context.Background(), -1)
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestPostgresUpdateProduct_LeavesStockUntouched(t *testing.T) {
	adapter := getPostgresAdapter(t)
	ctx := context.Background()
	sellerID, productID := seedPostgres(t, ctx, adapter, 10)

	ok, err := pgRecordSale(ctx, adapter, sellerID, productID, 3)
	require.NoError(t, err)
	require.True(t, ok)

	price := decimal.RequireFromString("30.00")
	require.NoError(t, adapter.UpdateProduct(ctx, productID, domain.ProductPatch{Price: &price}))

	product, err := adapter.GetProduct(ctx, productID)
	require.NoError(t, err)
	assert.True(t, product.Price.Equal(price))
	assert.Equal(t, 7, product.Stock)
}
