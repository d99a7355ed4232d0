package main

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-inventory/internal/adapter/storage"
	"github.com/rl1809/sales-inventory/internal/config"
	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/core/service"
	"github.com/rl1809/sales-inventory/internal/port"
)

type seedSale struct {
	seller   int
	product  int
	quantity int
}

var (
	seedSellers = []domain.CreateSellerRequest{
		{Name: "Juan Perez", Email: "juan@example.com"},
		{Name: "Maria Lopez", Email: "maria@example.com"},
	}

	seedProducts = []domain.CreateProductRequest{
		{Name: "Laptop", Price: decimal.RequireFromString("1200.50"), Stock: intPtr(10)},
		{Name: "Mouse", Price: decimal.RequireFromString("25.99"), Stock: intPtr(50)},
	}

	seedSales = []seedSale{
		{seller: 0, product: 0, quantity: 1},
		{seller: 1, product: 1, quantity: 2},
	}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer db.Close()

	if err := wipe(ctx, db); err != nil {
		log.Fatalf("failed to clear tables: %v", err)
	}
	log.Println("cleared sales, sellers and products")

	sellerService := service.NewSellerService(db)
	productService := service.NewProductService(db)
	saleService := service.NewSaleService(db, nil)

	sellers := make([]*domain.Seller, 0, len(seedSellers))
	for _, req := range seedSellers {
		s, err := sellerService.Create(ctx, req)
		if err != nil {
			log.Fatalf("failed to create seller %s: %v", req.Name, err)
		}
		sellers = append(sellers, s)
		log.Printf("created seller %d: %s", s.ID, s.Name)
	}

	products := make([]*domain.Product, 0, len(seedProducts))
	for _, req := range seedProducts {
		p, err := productService.Create(ctx, req)
		if err != nil {
			log.Fatalf("failed to create product %s: %v", req.Name, err)
		}
		products = append(products, p)
		log.Printf("created product %d: %s (price %s, stock %d)", p.ID, p.Name, p.Price, p.Stock)
	}

	for _, s := range seedSales {
		sale, err := saleService.CreateSale(ctx, domain.CreateSaleRequest{
			SellerID:  sellers[s.seller].ID,
			ProductID: products[s.product].ID,
			Quantity:  s.quantity,
		})
		if err != nil {
			log.Fatalf("failed to create sale: %v", err)
		}
		log.Printf("created sale %d: %d x %s = %s", sale.ID, sale.Quantity, sale.ProductName, sale.TotalPrice.StringFixed(2))
	}

	log.Println("seed complete")
}

// wipe deletes sales before their sellers and products so the foreign keys
// never block a delete.
func wipe(ctx context.Context, db port.DatabaseRepository) error {
	sales, err := db.ListSales(ctx, domain.SaleFilter{})
	if err != nil {
		return err
	}
	for _, s := range sales {
		if err := db.DeleteSale(ctx, s.ID); err != nil {
			return err
		}
	}

	sellers, err := db.ListSellers(ctx)
	if err != nil {
		return err
	}
	for _, s := range sellers {
		if err := db.DeleteSeller(ctx, s.ID); err != nil {
			return err
		}
	}

	products, err := db.ListProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if err := db.DeleteProduct(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }
