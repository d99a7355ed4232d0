package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,min=2"`
	Price       decimal.Decimal `json:"price" validate:"required,gt=0"`
	Description *string         `json:"description"`
	Stock       *int            `json:"stock" validate:"omitnil,min=0"`
}

// ProductPatch holds a partial update; nil fields keep the stored value.
type ProductPatch struct {
	Name        *string          `json:"name" validate:"omitnil,min=2"`
	Price       *decimal.Decimal `json:"price" validate:"omitnil,gt=0"`
	Description *string          `json:"description"`
	Stock       *int             `json:"stock" validate:"omitnil,min=0"`
}

// Apply merges the non-nil fields of patch over p.
func (p *Product) Apply(patch ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
}
