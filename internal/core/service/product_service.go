package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/port"
)

type ProductService struct {
	db port.ProductRepository
}

func NewProductService(db port.ProductRepository) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = trimPtr(req.Description)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	product := domain.Product{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	id, err := s.db.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *ProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.db.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, domain.NotFound(domain.EntityProduct, id)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	products, err := s.db.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	patch.Name = trimPtr(patch.Name)
	patch.Description = trimPtr(patch.Description)
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.db.UpdateProduct(ctx, id, patch); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the product and returns the row as it was.
func (s *ProductService) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.DeleteProduct(ctx, id); err != nil {
		return nil, err
	}
	return product, nil
}
