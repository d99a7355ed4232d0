package storage

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/port"
)

// MemoryAdapter keeps everything in process. A sale transaction holds the
// write lock from BeginSaleTx until Commit or Rollback, so sales are fully
// serialized.
type MemoryAdapter struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
	sellers  map[int64]domain.Seller
	sales    map[int64]domain.Sale

	nextProductID int64
	nextSellerID  int64
	nextSaleID    int64

	now func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		products: make(map[int64]domain.Product),
		sellers:  make(map[int64]domain.Seller),
		sales:    make(map[int64]domain.Sale),
		now:      time.Now,
	}
}

var _ port.DatabaseRepository = (*MemoryAdapter)(nil)

func (m *MemoryAdapter) Migrate(ctx context.Context) error { return nil }
func (m *MemoryAdapter) Ping(ctx context.Context) error    { return nil }
func (m *MemoryAdapter) Close() error                      { return nil }

func (m *MemoryAdapter) CreateProduct(ctx context.Context, product domain.Product) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextProductID++
	now := m.now().UTC()
	product.ID = m.nextProductID
	product.CreatedAt = now
	product.UpdatedAt = now
	m.products[product.ID] = product
	return product.ID, nil
}

func (m *MemoryAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (m *MemoryAdapter) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[id]
	if !ok {
		return nil
	}
	product.Apply(patch)
	product.UpdatedAt = m.now().UTC()
	m.products[id] = product
	return nil
}

func (m *MemoryAdapter) DeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sales {
		if s.ProductID == id {
			return &domain.ReferenceConstraintError{Entity: domain.EntityProduct, ID: id}
		}
	}
	delete(m.products, id)
	return nil
}

func (m *MemoryAdapter) CreateSeller(ctx context.Context, seller domain.Seller) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(seller.Email, 0) {
		return 0, &domain.DuplicateEntryError{Field: "email", Value: seller.Email}
	}

	m.nextSellerID++
	now := m.now().UTC()
	seller.ID = m.nextSellerID
	seller.CreatedAt = now
	seller.UpdatedAt = now
	m.sellers[seller.ID] = seller
	return seller.ID, nil
}

func (m *MemoryAdapter) GetSeller(ctx context.Context, id int64) (*domain.Seller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sellers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryAdapter) ListSellers(ctx context.Context) ([]domain.Seller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sellers := make([]domain.Seller, 0, len(m.sellers))
	for _, s := range m.sellers {
		sellers = append(sellers, s)
	}
	sort.Slice(sellers, func(i, j int) bool {
		if sellers[i].Name != sellers[j].Name {
			return sellers[i].Name < sellers[j].Name
		}
		return sellers[i].ID < sellers[j].ID
	})
	return sellers, nil
}

func (m *MemoryAdapter) UpdateSeller(ctx context.Context, seller domain.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sellers[seller.ID]
	if !ok {
		return nil
	}
	if m.emailTaken(seller.Email, seller.ID) {
		return &domain.DuplicateEntryError{Field: "email", Value: seller.Email}
	}
	seller.CreatedAt = existing.CreatedAt
	seller.UpdatedAt = m.now().UTC()
	m.sellers[seller.ID] = seller
	return nil
}

func (m *MemoryAdapter) DeleteSeller(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sales {
		if s.SellerID == id {
			return &domain.ReferenceConstraintError{Entity: domain.EntitySeller, ID: id}
		}
	}
	delete(m.sellers, id)
	return nil
}

// emailTaken must be called with mu held.
func (m *MemoryAdapter) emailTaken(email string, exceptID int64) bool {
	for id, s := range m.sellers {
		if id != exceptID && strings.EqualFold(s.Email, email) {
			return true
		}
	}
	return false
}

func (m *MemoryAdapter) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sales[id]
	if !ok {
		return nil, nil
	}
	m.attachView(&s)
	return &s, nil
}

func (m *MemoryAdapter) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(m.sales))
	for _, s := range m.sales {
		if filter.SellerID != 0 && s.SellerID != filter.SellerID {
			continue
		}
		if filter.ProductID != 0 && s.ProductID != filter.ProductID {
			continue
		}
		m.attachView(&s)
		sales = append(sales, s)
	}
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].SaleDate.Equal(sales[j].SaleDate) {
			return sales[i].SaleDate.After(sales[j].SaleDate)
		}
		return sales[i].ID > sales[j].ID
	})
	return sales, nil
}

func (m *MemoryAdapter) DeleteSale(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sales, id)
	return nil
}

// attachView must be called with mu held.
func (m *MemoryAdapter) attachView(s *domain.Sale) {
	if seller, ok := m.sellers[s.SellerID]; ok {
		s.SellerName = seller.Name
	}
	if product, ok := m.products[s.ProductID]; ok {
		price := product.Price
		s.ProductName = product.Name
		s.ProductPrice = &price
	}
}

func (m *MemoryAdapter) BeginSaleTx(ctx context.Context) (port.SaleTx, error) {
	m.mu.Lock()
	return &memorySaleTx{
		m:          m,
		stockDelta: make(map[int64]int),
	}, nil
}

// memorySaleTx stages its writes and applies them on Commit.
type memorySaleTx struct {
	m          *MemoryAdapter
	stockDelta map[int64]int
	sales      []domain.Sale
	done       bool
}

func (tx *memorySaleTx) GetSeller(ctx context.Context, id int64) (*domain.Seller, error) {
	s, ok := tx.m.sellers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (tx *memorySaleTx) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := tx.m.products[id]
	if !ok {
		return nil, nil
	}
	p.Stock -= tx.stockDelta[id]
	return &p, nil
}

func (tx *memorySaleTx) DecrementStockIfSufficient(ctx context.Context, productID int64, quantity int) (bool, error) {
	p, ok := tx.m.products[productID]
	if !ok || p.Stock-tx.stockDelta[productID] < quantity {
		return false, nil
	}
	tx.stockDelta[productID] += quantity
	return true, nil
}

func (tx *memorySaleTx) InsertSale(ctx context.Context, sale domain.Sale) (int64, error) {
	tx.m.nextSaleID++
	sale.ID = tx.m.nextSaleID
	tx.sales = append(tx.sales, sale)
	return sale.ID, nil
}

func (tx *memorySaleTx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	defer tx.m.mu.Unlock()

	now := tx.m.now().UTC()
	for id, delta := range tx.stockDelta {
		p := tx.m.products[id]
		p.Stock -= delta
		p.UpdatedAt = now
		tx.m.products[id] = p
	}
	for _, s := range tx.sales {
		tx.m.sales[s.ID] = s
	}
	return nil
}

func (tx *memorySaleTx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.m.mu.Unlock()
	return nil
}
