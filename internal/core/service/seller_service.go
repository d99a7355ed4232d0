package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/port"
)

type SellerService struct {
	db port.SellerRepository
}

func NewSellerService(db port.SellerRepository) *SellerService {
	return &SellerService{db: db}
}

func (s *SellerService) Create(ctx context.Context, req domain.CreateSellerRequest) (*domain.Seller, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = trimPtr(req.Phone)
	if req.Phone != nil && *req.Phone == "" {
		req.Phone = nil
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	id, err := s.db.CreateSeller(ctx, domain.Seller{
		Name:  req.Name,
		Email: req.Email,
		Phone: normalizePhone(req.Phone),
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *SellerService) Get(ctx context.Context, id int64) (*domain.Seller, error) {
	seller, err := s.db.GetSeller(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get seller: %w", err)
	}
	if seller == nil {
		return nil, domain.NotFound(domain.EntitySeller, id)
	}
	return seller, nil
}

func (s *SellerService) List(ctx context.Context) ([]domain.Seller, error) {
	sellers, err := s.db.ListSellers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}
	return sellers, nil
}

func (s *SellerService) Update(ctx context.Context, id int64, patch domain.SellerPatch) (*domain.Seller, error) {
	patch.Name = trimPtr(patch.Name)
	patch.Email = trimPtr(patch.Email)
	patch.Phone = trimPtr(patch.Phone)

	// an empty phone clears the stored one
	clearPhone := patch.Phone != nil && *patch.Phone == ""
	if clearPhone {
		patch.Phone = nil
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	patch.Phone = normalizePhone(patch.Phone)

	seller, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	seller.Apply(patch)
	if clearPhone {
		seller.Phone = nil
	}

	if err := s.db.UpdateSeller(ctx, *seller); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the seller and returns the row as it was.
func (s *SellerService) Delete(ctx context.Context, id int64) (*domain.Seller, error) {
	seller, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.DeleteSeller(ctx, id); err != nil {
		return nil, err
	}
	return seller, nil
}

// normalizePhone keeps digits only; an empty phone is stored as NULL.
func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	digits := digitsOnly(*phone)
	if digits == "" {
		return nil
	}
	return &digits
}
