package domain

import "time"

type Seller struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateSellerRequest struct {
	Name  string  `json:"name" validate:"required,min=2"`
	Email string  `json:"email" validate:"required,email"`
	Phone *string `json:"phone" validate:"omitempty,phone_digits"`
}

// SellerPatch holds a partial update; nil fields keep the stored value.
type SellerPatch struct {
	Name  *string `json:"name" validate:"omitnil,min=2"`
	Email *string `json:"email" validate:"omitnil,email"`
	Phone *string `json:"phone" validate:"omitnil,phone_digits"`
}

func (s *Seller) Apply(patch SellerPatch) {
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.Email != nil {
		s.Email = *patch.Email
	}
	if patch.Phone != nil {
		s.Phone = patch.Phone
	}
}
