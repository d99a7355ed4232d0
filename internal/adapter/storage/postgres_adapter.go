package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/port"
)

type sellerRecord struct {
	ID        int64   `gorm:"primaryKey"`
	Name      string  `gorm:"size:255;not null;check:chk_sellers_name,char_length(name) >= 2"`
	Email     string  `gorm:"size:255;not null;uniqueIndex:uq_sellers_email"`
	Phone     *string `gorm:"size:32;check:chk_sellers_phone,phone IS NULL OR char_length(phone) >= 8"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sellerRecord) TableName() string { return "sellers" }

type productRecord struct {
	ID          int64           `gorm:"primaryKey"`
	Name        string          `gorm:"size:255;not null;index:idx_products_name;check:chk_products_name,char_length(name) >= 2"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;check:chk_products_price,price > 0"`
	Description *string         `gorm:"type:text"`
	Stock       int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (productRecord) TableName() string { return "products" }

type saleRecord struct {
	ID         int64           `gorm:"primaryKey"`
	SellerID   int64           `gorm:"not null;index:idx_sales_seller"`
	ProductID  int64           `gorm:"not null;index:idx_sales_product"`
	Quantity   int             `gorm:"not null;check:chk_sales_quantity,quantity > 0"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(14,2);not null;check:chk_sales_total,total_price > 0"`
	SaleDate   time.Time       `gorm:"not null;index:idx_sales_sale_date"`
	CreatedAt  time.Time

	Seller  sellerRecord  `gorm:"foreignKey:SellerID;constraint:OnDelete:RESTRICT"`
	Product productRecord `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
}

func (saleRecord) TableName() string { return "sales" }

// saleRow is the joined read model of a sale.
type saleRow struct {
	ID           int64
	SellerID     int64
	ProductID    int64
	Quantity     int
	TotalPrice   decimal.Decimal
	SaleDate     time.Time
	SellerName   string
	ProductName  string
	ProductPrice decimal.Decimal
}

type PostgresAdapter struct {
	db *gorm.DB
}

// OpenPostgres connects through gorm with driver errors translated, so unique
// and foreign key violations surface as gorm.ErrDuplicatedKey and
// gorm.ErrForeignKeyViolated.
func OpenPostgres(dsn string) (*PostgresAdapter, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresAdapter(db), nil
}

func NewPostgresAdapter(db *gorm.DB) *PostgresAdapter {
	return &PostgresAdapter{db: db}
}

var _ port.DatabaseRepository = (*PostgresAdapter)(nil)

func (p *PostgresAdapter) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&sellerRecord{}, &productRecord{}, &saleRecord{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *PostgresAdapter) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PostgresAdapter) CreateProduct(ctx context.Context, product domain.Product) (int64, error) {
	rec := productRecord{
		Name:        product.Name,
		Price:       product.Price,
		Description: product.Description,
		Stock:       product.Stock,
	}
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return rec.ID, nil
}

func (p *PostgresAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return takeProduct(p.db.WithContext(ctx), id)
}

func (p *PostgresAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var recs []productRecord
	if err := p.db.WithContext(ctx).Order("name ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	products := make([]domain.Product, 0, len(recs))
	for _, rec := range recs {
		products = append(products, rec.toDomain())
	}
	return products, nil
}

func (p *PostgresAdapter) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) error {
	updates := make(map[string]interface{})
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Price != nil {
		updates["price"] = *patch.Price
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Stock != nil {
		updates["stock"] = *patch.Stock
	}
	if len(updates) == 0 {
		return nil
	}

	if err := p.db.WithContext(ctx).Model(&productRecord{ID: id}).Updates(updates).Error; err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) DeleteProduct(ctx context.Context, id int64) error {
	if err := p.db.WithContext(ctx).Delete(&productRecord{}, id).Error; err != nil {
		return translateGormError(err, domain.EntityProduct, id, "delete product")
	}
	return nil
}

func (p *PostgresAdapter) CreateSeller(ctx context.Context, seller domain.Seller) (int64, error) {
	rec := sellerRecord{Name: seller.Name, Email: seller.Email, Phone: seller.Phone}
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, &domain.DuplicateEntryError{Field: "email", Value: seller.Email}
		}
		return 0, fmt.Errorf("insert seller: %w", err)
	}
	return rec.ID, nil
}

func (p *PostgresAdapter) GetSeller(ctx context.Context, id int64) (*domain.Seller, error) {
	return takeSeller(p.db.WithContext(ctx), id)
}

func (p *PostgresAdapter) ListSellers(ctx context.Context) ([]domain.Seller, error) {
	var recs []sellerRecord
	if err := p.db.WithContext(ctx).Order("name ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("query sellers: %w", err)
	}

	sellers := make([]domain.Seller, 0, len(recs))
	for _, rec := range recs {
		sellers = append(sellers, rec.toDomain())
	}
	return sellers, nil
}

func (p *PostgresAdapter) UpdateSeller(ctx context.Context, seller domain.Seller) error {
	err := p.db.WithContext(ctx).Model(&sellerRecord{ID: seller.ID}).Updates(map[string]interface{}{
		"name":  seller.Name,
		"email": seller.Email,
		"phone": seller.Phone,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &domain.DuplicateEntryError{Field: "email", Value: seller.Email}
	}
	if err != nil {
		return fmt.Errorf("update seller: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) DeleteSeller(ctx context.Context, id int64) error {
	if err := p.db.WithContext(ctx).Delete(&sellerRecord{}, id).Error; err != nil {
		return translateGormError(err, domain.EntitySeller, id, "delete seller")
	}
	return nil
}

func (p *PostgresAdapter) saleQuery(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx).
		Table("sales AS s").
		Select(`s.id, s.seller_id, s.product_id, s.quantity, s.total_price, s.sale_date,
			sl.name AS seller_name, p.name AS product_name, p.price AS product_price`).
		Joins("JOIN sellers sl ON sl.id = s.seller_id").
		Joins("JOIN products p ON p.id = s.product_id")
}

func (p *PostgresAdapter) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	var rows []saleRow
	if err := p.saleQuery(ctx).Where("s.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query sale: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sale := rows[0].toDomain()
	return &sale, nil
}

func (p *PostgresAdapter) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	q := p.saleQuery(ctx)
	if filter.SellerID != 0 {
		q = q.Where("s.seller_id = ?", filter.SellerID)
	}
	if filter.ProductID != 0 {
		q = q.Where("s.product_id = ?", filter.ProductID)
	}

	var rows []saleRow
	if err := q.Order("s.sale_date DESC, s.id DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}

	sales := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, row.toDomain())
	}
	return sales, nil
}

func (p *PostgresAdapter) DeleteSale(ctx context.Context, id int64) error {
	if err := p.db.WithContext(ctx).Delete(&saleRecord{}, id).Error; err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) BeginSaleTx(ctx context.Context) (port.SaleTx, error) {
	tx := p.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin tx: %w", tx.Error)
	}
	return &postgresSaleTx{tx: tx}, nil
}

type postgresSaleTx struct {
	tx *gorm.DB
}

func (t *postgresSaleTx) GetSeller(ctx context.Context, id int64) (*domain.Seller, error) {
	return takeSeller(t.tx.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), id)
}

func (t *postgresSaleTx) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return takeProduct(t.tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (t *postgresSaleTx) DecrementStockIfSufficient(ctx context.Context, productID int64, quantity int) (bool, error) {
	result := t.tx.WithContext(ctx).
		Model(&productRecord{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("update stock: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (t *postgresSaleTx) InsertSale(ctx context.Context, sale domain.Sale) (int64, error) {
	rec := saleRecord{
		SellerID:   sale.SellerID,
		ProductID:  sale.ProductID,
		Quantity:   sale.Quantity,
		TotalPrice: sale.TotalPrice,
		SaleDate:   sale.SaleDate,
	}
	if err := t.tx.WithContext(ctx).Omit(clause.Associations).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	return rec.ID, nil
}

func (t *postgresSaleTx) Commit() error   { return t.tx.Commit().Error }
func (t *postgresSaleTx) Rollback() error { return t.tx.Rollback().Error }

func takeProduct(db *gorm.DB, id int64) (*domain.Product, error) {
	var rec productRecord
	err := db.Take(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	product := rec.toDomain()
	return &product, nil
}

func takeSeller(db *gorm.DB, id int64) (*domain.Seller, error) {
	var rec sellerRecord
	err := db.Take(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query seller: %w", err)
	}
	seller := rec.toDomain()
	return &seller, nil
}

func translateGormError(err error, entity string, id int64, op string) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &domain.ReferenceConstraintError{Entity: entity, ID: id}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r productRecord) toDomain() domain.Product {
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
		Stock:       r.Stock,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r sellerRecord) toDomain() domain.Seller {
	return domain.Seller{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r saleRow) toDomain() domain.Sale {
	price := r.ProductPrice
	return domain.Sale{
		ID:           r.ID,
		SellerID:     r.SellerID,
		ProductID:    r.ProductID,
		Quantity:     r.Quantity,
		TotalPrice:   r.TotalPrice,
		SaleDate:     r.SaleDate,
		SellerName:   r.SellerName,
		ProductName:  r.ProductName,
		ProductPrice: &price,
	}
}
