package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/oppgjor/model"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// MapErrorToHTTPStatus translates both APIError codes and the typed domain
// errors surfaced by the ledger into HTTP status codes.
func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict:
			return http.StatusConflict
		case ErrBadRequest, ErrInvalidInput:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}

	var duplicate model.DuplicateOrderError
	var unknown model.UnknownPaymentError
	var overlap model.OverlappingWindowError
	var invalid model.InvalidDecisionError
	switch {
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &unknown):
		return http.StatusNotFound
	case errors.As(err, &overlap):
		return http.StatusConflict
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
