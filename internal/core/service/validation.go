package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-inventory/internal/core/domain"
)

const (
	minPhoneDigits = 8

	// prices are stored as DECIMAL(12,2)
	priceDecimalPlaces = 2
)

var maxPrice = decimal.New(1, 10)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
		return len(digitsOnly(fl.Field().String())) >= minPhoneDigits
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(domain.CreateProductRequest)
		validatePrice(sl, &req.Price)
	}, domain.CreateProductRequest{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		patch := sl.Current().Interface().(domain.ProductPatch)
		validatePrice(sl, patch.Price)
	}, domain.ProductPatch{})

	return v
}

// validatePrice rejects positive prices the schema would round or overflow.
// Non-positive prices are left to the gt rule.
func validatePrice(sl validator.StructLevel, price *decimal.Decimal) {
	if price == nil || !price.IsPositive() {
		return
	}
	if !price.Equal(price.Truncate(priceDecimalPlaces)) {
		sl.ReportError(*price, "price", "Price", "decimal_places", strconv.Itoa(priceDecimalPlaces))
		return
	}
	if price.GreaterThanOrEqual(maxPrice) {
		sl.ReportError(*price, "price", "Price", "lt", maxPrice.String())
	}
}

// Validate applies the request rules used by the services to v and returns a
// *domain.ValidationError when any fail. Input is checked as given, without
// the trimming the services apply first.
func Validate(v interface{}) error {
	return validateStruct(v)
}

// validateStruct runs the tag rules on s and folds every failure into a
// single *domain.ValidationError.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = formatValidationError(fe)
	}
	return &domain.ValidationError{Fields: fields}
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("minimum length is %s", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "decimal_places":
		return fmt.Sprintf("must have at most %s decimal places", fe.Param())
	case "phone_digits":
		return fmt.Sprintf("must contain at least %d digits", minPhoneDigits)
	default:
		return fmt.Sprintf("validation failed on %s", fe.Tag())
	}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
