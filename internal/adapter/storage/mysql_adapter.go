package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/port"
)

// MySQL server error numbers
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrRowIsReferenced = 1451
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS sellers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_sellers_email (email),
		CONSTRAINT chk_sellers_name CHECK (CHAR_LENGTH(name) >= 2),
		CONSTRAINT chk_sellers_phone CHECK (phone IS NULL OR CHAR_LENGTH(phone) >= 8)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		description TEXT NULL,
		stock INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_products_name (name),
		CONSTRAINT chk_products_name CHECK (CHAR_LENGTH(name) >= 2),
		CONSTRAINT chk_products_price CHECK (price > 0),
		CONSTRAINT chk_products_stock CHECK (stock >= 0)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS sales (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		seller_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		total_price DECIMAL(14,2) NOT NULL,
		sale_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_sales_sale_date (sale_date),
		KEY idx_sales_seller (seller_id),
		KEY idx_sales_product (product_id),
		CONSTRAINT fk_sales_seller FOREIGN KEY (seller_id) REFERENCES sellers (id) ON DELETE RESTRICT,
		CONSTRAINT fk_sales_product FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE RESTRICT,
		CONSTRAINT chk_sales_quantity CHECK (quantity > 0),
		CONSTRAINT chk_sales_total CHECK (total_price > 0)
	) ENGINE=InnoDB`,
}

const (
	productColumns = `id, name, price, description, stock, created_at, updated_at`
	sellerColumns  = `id, name, email, phone, created_at, updated_at`
	saleViewQuery  = `
		SELECT s.id, s.seller_id, s.product_id, s.quantity, s.total_price, s.sale_date,
		       sl.name, p.name, p.price
		FROM sales s
		JOIN sellers sl ON sl.id = s.seller_id
		JOIN products p ON p.id = s.product_id`
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

var _ port.DatabaseRepository = (*MySQLAdapter)(nil)

func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLAdapter) Close() error {
	return m.db.Close()
}

func (m *MySQLAdapter) CreateProduct(ctx context.Context, product domain.Product) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO products (name, price, description, stock)
		VALUES (?, ?, ?, ?)`,
		product.Name, product.Price, product.Description, product.Stock,
	)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return result.LastInsertId()
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (m *MySQLAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (m *MySQLAdapter) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) error {
	var set []string
	var args []interface{}
	if patch.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Price != nil {
		set = append(set, "price = ?")
		args = append(args, *patch.Price)
	}
	if patch.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Stock != nil {
		set = append(set, "stock = ?")
		args = append(args, *patch.Stock)
	}
	if len(set) == 0 {
		return nil
	}

	set = append(set, "updated_at = NOW()")
	args = append(args, id)
	_, err := m.db.ExecContext(ctx, `UPDATE products SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return translateMySQLError(err, domain.EntityProduct, id, "delete product")
	}
	return nil
}

func (m *MySQLAdapter) CreateSeller(ctx context.Context, seller domain.Seller) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO sellers (name, email, phone)
		VALUES (?, ?, ?)`,
		seller.Name, seller.Email, seller.Phone,
	)
	if err != nil {
		return 0, translateSellerError(err, seller.Email, "insert seller")
	}
	return result.LastInsertId()
}

func (m *MySQLAdapter) GetSeller(ctx context.Context, id int64) (*domain.Seller, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+sellerColumns+` FROM sellers WHERE id = ?`, id)
	return scanSeller(row)
}

func (m *MySQLAdapter) ListSellers(ctx context.Context) ([]domain.Seller, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+sellerColumns+` FROM sellers ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sellers: %w", err)
	}
	defer rows.Close()

	sellers := []domain.Seller{}
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			return nil, err
		}
		sellers = append(sellers, *s)
	}
	return sellers, rows.Err()
}

func (m *MySQLAdapter) UpdateSeller(ctx context.Context, seller domain.Seller) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE sellers
		SET name = ?, email = ?, phone = ?, updated_at = NOW()
		WHERE id = ?`,
		seller.Name, seller.Email, seller.Phone, seller.ID,
	)
	if err != nil {
		return translateSellerError(err, seller.Email, "update seller")
	}
	return nil
}

func (m *MySQLAdapter) DeleteSeller(ctx context.Context, id int64) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sellers WHERE id = ?`, id); err != nil {
		return translateMySQLError(err, domain.EntitySeller, id, "delete seller")
	}
	return nil
}

func (m *MySQLAdapter) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	row := m.db.QueryRowContext(ctx, saleViewQuery+` WHERE s.id = ?`, id)
	return scanSale(row)
}

func (m *MySQLAdapter) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.SellerID != 0 {
		where = append(where, "s.seller_id = ?")
		args = append(args, filter.SellerID)
	}
	if filter.ProductID != 0 {
		where = append(where, "s.product_id = ?")
		args = append(args, filter.ProductID)
	}

	query := saleViewQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.sale_date DESC, s.id DESC"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := []domain.Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *s)
	}
	return sales, rows.Err()
}

func (m *MySQLAdapter) DeleteSale(ctx context.Context, id int64) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) BeginSaleTx(ctx context.Context) (port.SaleTx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &mysqlSaleTx{tx: tx}, nil
}

type mysqlSaleTx struct {
	tx *sql.Tx
}

func (t *mysqlSaleTx) GetSeller(ctx context.Context, id int64) (*domain.Seller, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+sellerColumns+` FROM sellers WHERE id = ? FOR SHARE`, id)
	return scanSeller(row)
}

func (t *mysqlSaleTx) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id)
	return scanProduct(row)
}

func (t *mysqlSaleTx) DecrementStockIfSufficient(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, updated_at = NOW()
		WHERE id = ? AND stock >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("update stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows == 1, nil
}

func (t *mysqlSaleTx) InsertSale(ctx context.Context, sale domain.Sale) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (seller_id, product_id, quantity, total_price, sale_date)
		VALUES (?, ?, ?, ?, ?)`,
		sale.SellerID, sale.ProductID, sale.Quantity, sale.TotalPrice, sale.SaleDate,
	)
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	return result.LastInsertId()
}

func (t *mysqlSaleTx) Commit() error   { return t.tx.Commit() }
func (t *mysqlSaleTx) Rollback() error { return t.tx.Rollback() }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p    domain.Product
		desc sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &desc, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.Description = nullStringPtr(desc)
	return &p, nil
}

func scanSeller(row rowScanner) (*domain.Seller, error) {
	var (
		s     domain.Seller
		phone sql.NullString
	)
	err := row.Scan(&s.ID, &s.Name, &s.Email, &phone, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan seller: %w", err)
	}
	s.Phone = nullStringPtr(phone)
	return &s, nil
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var s domain.Sale
	s.ProductPrice = new(decimal.Decimal)
	err := row.Scan(&s.ID, &s.SellerID, &s.ProductID, &s.Quantity, &s.TotalPrice, &s.SaleDate,
		&s.SellerName, &s.ProductName, s.ProductPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sale: %w", err)
	}
	return &s, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func translateMySQLError(err error, entity string, id int64, op string) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrRowIsReferenced {
		return &domain.ReferenceConstraintError{Entity: entity, ID: id}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func translateSellerError(err error, email, op string) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		return &domain.DuplicateEntryError{Field: "email", Value: email}
	}
	return fmt.Errorf("%s: %w", op, err)
}
