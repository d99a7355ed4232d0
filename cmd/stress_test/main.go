package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-inventory/internal/adapter/storage"
	"github.com/rl1809/sales-inventory/internal/config"
	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/core/service"
	"github.com/rl1809/sales-inventory/internal/port"
)

func main() {
	initialStock := flag.Int("stock", 20, "initial product stock")
	totalRequests := flag.Int("requests", 50, "concurrent single-unit sales")
	driver := flag.String("driver", "", "storage driver override (mysql, postgres, memory)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *driver != "" {
		cfg.DBDriver = *driver
	}

	ctx := context.Background()

	// Initialize storage
	db, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer db.Close()

	var cache port.CacheRepository
	rdb, err := storage.OpenRedis(ctx, cfg)
	if err != nil {
		log.Printf("redis unavailable, running without idempotency keys: %v", err)
	} else if rdb != nil {
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb, time.Hour)
	}

	// Fresh seller and product for this run
	runID := uuid.NewString()[:8]
	sellerService := service.NewSellerService(db)
	productService := service.NewProductService(db)
	saleService := service.NewSaleService(db, cache)

	seller, err := sellerService.Create(ctx, domain.CreateSellerRequest{
		Name:  "Stress Seller " + runID,
		Email: fmt.Sprintf("stress-%s@example.com", runID),
	})
	if err != nil {
		log.Fatalf("failed to create seller: %v", err)
	}
	product, err := productService.Create(ctx, domain.CreateProductRequest{
		Name:  "Stress Item " + runID,
		Price: decimal.RequireFromString("9.99"),
		Stock: initialStock,
	})
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var stockFailCount atomic.Int32
	var otherFailCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := saleService.CreateSale(ctx, domain.CreateSaleRequest{
				RequestID: uuid.NewString(),
				SellerID:  seller.ID,
				ProductID: product.ID,
				Quantity:  1,
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				stockFailCount.Add(1)
			default:
				otherFailCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := int(successCount.Load())
	stockFail := int(stockFailCount.Load())
	otherFail := int(otherFailCount.Load())
	expected := min(*totalRequests, *initialStock)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", cfg.DBDriver)
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Out of stock:     %d\n", stockFail)
	fmt.Printf("Other failures:   %d\n", otherFail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	passed := true

	// Assertions
	if success == expected && stockFail == *totalRequests-expected {
		fmt.Printf("PASS: exactly %d sales succeeded, %d failed\n", success, stockFail)
	} else {
		fmt.Printf("FAIL: expected %d success/%d fail, got %d/%d\n",
			expected, *totalRequests-expected, success, stockFail)
		passed = false
	}

	// Verify final stock
	final, err := productService.Get(ctx, product.ID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", final.Stock)

	if final.Stock == *initialStock-success && final.Stock >= 0 {
		fmt.Println("PASS: stock matches recorded sales")
	} else {
		fmt.Printf("FAIL: expected stock %d, got %d\n", *initialStock-success, final.Stock)
		passed = false
	}

	if !passed {
		os.Exit(1)
	}
}
