package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/sales-inventory/internal/core/domain"
)

// Error codes carried in the HTTP error envelope.
const (
	CodeNotFound            = "RESOURCE_NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeReferenceConstraint = "REFERENCE_CONSTRAINT"
	CodeDuplicateEntry      = "DUPLICATE_ENTRY"
	CodeDuplicateRequest    = "DUPLICATE_REQUEST"
	CodeInternal            = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

const internalErrorMessage = "internal server error"

// httpStatus maps an error kind to its HTTP status and envelope code.
func httpStatus(kind domain.ErrorKind) (int, string) {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case domain.KindValidation:
		return http.StatusBadRequest, CodeValidation
	case domain.KindInvalidInput:
		return http.StatusBadRequest, CodeInvalidInput
	case domain.KindInsufficientStock:
		return http.StatusConflict, CodeInsufficientStock
	case domain.KindReferenceConstraint:
		return http.StatusConflict, CodeReferenceConstraint
	case domain.KindDuplicateEntry:
		return http.StatusConflict, CodeDuplicateEntry
	case domain.KindDuplicateRequest:
		return http.StatusConflict, CodeDuplicateRequest
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// errorDetails returns the per-field messages carried by validation and
// invalid-input errors.
func errorDetails(err error) map[string]string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	var ierr *domain.InvalidInputError
	if errors.As(err, &ierr) {
		return map[string]string{ierr.Field: ierr.Message}
	}
	return nil
}

// mapDomainErrorToGRPC converts domain errors to gRPC status codes.
func mapDomainErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())

	case domain.KindValidation, domain.KindInvalidInput:
		return status.Error(codes.InvalidArgument, err.Error())

	case domain.KindInsufficientStock, domain.KindReferenceConstraint:
		return status.Error(codes.FailedPrecondition, err.Error())

	case domain.KindDuplicateEntry, domain.KindDuplicateRequest:
		return status.Error(codes.AlreadyExists, err.Error())

	default:
		// Unknown error - return Internal
		return status.Error(codes.Internal, internalErrorMessage)
	}
}
