package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is an immutable record of one transaction. SellerName, ProductName and
// ProductPrice are joined at read time and never persisted.
type Sale struct {
	ID         int64           `json:"id"`
	SellerID   int64           `json:"seller_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	SaleDate   time.Time       `json:"sale_date"`

	SellerName   string           `json:"seller_name,omitempty"`
	ProductName  string           `json:"product_name,omitempty"`
	ProductPrice *decimal.Decimal `json:"product_price,omitempty"`
}

type CreateSaleRequest struct {
	RequestID string `json:"-"`
	SellerID  int64  `json:"seller_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SaleFilter narrows ListSales; zero values match everything.
type SaleFilter struct {
	SellerID  int64
	ProductID int64
}

// SaleTotal is quantity × unit price.
func SaleTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
