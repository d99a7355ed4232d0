package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSaleTotal(t *testing.T) {
	tests := []struct {
		price    string
		quantity int
		want     string
	}{
		{"25.00", 3, "75"},
		{"1200.50", 2, "2401"},
		{"0.10", 3, "0.3"},
		{"25.99", 1, "25.99"},
	}

	for _, tt := range tests {
		got := SaleTotal(decimal.RequireFromString(tt.price), tt.quantity)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s x %d = %s", tt.price, tt.quantity, got)
	}
}

func TestProductApply_MergesOnlySetFields(t *testing.T) {
	desc := "old"
	p := Product{ID: 1, Name: "Laptop", Price: decimal.RequireFromString("1200.50"), Description: &desc, Stock: 10}

	stock := 4
	p.Apply(ProductPatch{Stock: &stock})

	assert.Equal(t, "Laptop", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("1200.50")))
	assert.Equal(t, "old", *p.Description)
	assert.Equal(t, 4, p.Stock)

	name := "Gaming Laptop"
	price := decimal.RequireFromString("1500")
	p.Apply(ProductPatch{Name: &name, Price: &price})

	assert.Equal(t, "Gaming Laptop", p.Name)
	assert.True(t, p.Price.Equal(price))
	assert.Equal(t, 4, p.Stock)
}

func TestSellerApply_MergesOnlySetFields(t *testing.T) {
	phone := "5551234567"
	s := Seller{ID: 1, Name: "Juan", Email: "juan@example.com", Phone: &phone}

	email := "juan.perez@example.com"
	s.Apply(SellerPatch{Email: &email})

	assert.Equal(t, "Juan", s.Name)
	assert.Equal(t, email, s.Email)
	assert.Equal(t, &phone, s.Phone)
}
