package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidInput
	KindValidation
	KindInsufficientStock
	KindReferenceConstraint
	KindDuplicateEntry
	KindDuplicateRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindValidation:
		return "validation"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindReferenceConstraint:
		return "reference_constraint"
	case KindDuplicateEntry:
		return "duplicate_entry"
	case KindDuplicateRequest:
		return "duplicate_request"
	default:
		return "internal"
	}
}

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrReferenceConstraint = errors.New("referenced by existing sales")
	ErrDuplicateEntry      = errors.New("duplicate entry")
	ErrDuplicateRequest    = errors.New("duplicate request")
)

// Entity names used in error payloads.
const (
	EntitySeller  = "seller"
	EntityProduct = "product"
	EntitySale    = "sale"
)

type kinded interface {
	Kind() ErrorKind
}

// KindOf reports the kind of the first domain error in err's chain.
// Errors outside the taxonomy are KindInternal.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func NotFound(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Kind() ErrorKind      { return KindNotFound }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type InvalidInputError struct {
	Field   string
	Message string
}

func InvalidInput(field, message string) *InvalidInputError {
	return &InvalidInputError{Field: field, Message: message}
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Kind() ErrorKind      { return KindInvalidInput }
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// ValidationError collects every failing field with a user-facing message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Kind() ErrorKind      { return KindValidation }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientStockError) Kind() ErrorKind      { return KindInsufficientStock }
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type ReferenceConstraintError struct {
	Entity string
	ID     int64
}

func (e *ReferenceConstraintError) Error() string {
	return fmt.Sprintf("%s %d cannot be deleted: it has associated sales", e.Entity, e.ID)
}

func (e *ReferenceConstraintError) Kind() ErrorKind      { return KindReferenceConstraint }
func (e *ReferenceConstraintError) Is(target error) bool { return target == ErrReferenceConstraint }

type DuplicateEntryError struct {
	Field string
	Value string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("%s %q is already registered", e.Field, e.Value)
}

func (e *DuplicateEntryError) Kind() ErrorKind      { return KindDuplicateEntry }
func (e *DuplicateEntryError) Is(target error) bool { return target == ErrDuplicateEntry }

// DuplicateRequestError is returned while a sale with the same idempotency
// key is still being processed, or when the key was already used for a sale
// with different details.
type DuplicateRequestError struct {
	Key      string
	Mismatch bool
}

func (e *DuplicateRequestError) Error() string {
	if e.Mismatch {
		return fmt.Sprintf("request %q was already used for a different sale", e.Key)
	}
	return fmt.Sprintf("request %q is already in progress", e.Key)
}

func (e *DuplicateRequestError) Kind() ErrorKind      { return KindDuplicateRequest }
func (e *DuplicateRequestError) Is(target error) bool { return target == ErrDuplicateRequest }
