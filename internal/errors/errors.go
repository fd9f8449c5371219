// Package errors provides standardized error handling for the VSD service.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code for the VSD service.
type ErrorCode string

const (
	// Validation errors
	VSD_VALIDATION  ErrorCode = "VSD_VALIDATION"  // General validation error
	VSD_BAD_REQUEST ErrorCode = "VSD_BAD_REQUEST" // Bad request

	// Authentication/Authorization errors
	VSD_AUTHZ         ErrorCode = "VSD_AUTHZ"         // Authorization failed
	VSD_AUTHN         ErrorCode = "VSD_AUTHN"         // Authentication failed
	VSD_JWT_INVALID   ErrorCode = "VSD_JWT_INVALID"   // Invalid JWT
	VSD_JWT_EXPIRED   ErrorCode = "VSD_JWT_EXPIRED"   // Expired JWT
	VSD_JWT_MALFORMED ErrorCode = "VSD_JWT_MALFORMED" // Malformed JWT

	// Resource errors
	VSD_NOT_FOUND    ErrorCode = "VSD_NOT_FOUND"    // Resource not found
	VSD_NOT_ELIGIBLE ErrorCode = "VSD_NOT_ELIGIBLE" // Item produces no document
	VSD_CONFLICT     ErrorCode = "VSD_CONFLICT"     // Resource conflict

	// Server errors
	VSD_INTERNAL    ErrorCode = "VSD_INTERNAL"    // Internal server error
	VSD_UNAVAILABLE ErrorCode = "VSD_UNAVAILABLE" // Service unavailable
)

// Error represents a standardized error response.
type Error struct {
	Code          ErrorCode   `json:"code"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlationId"`
	Details       interface{} `json:"details,omitempty"`
	HTTPStatus    int         `json:"-"`
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string, correlationID string) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// NewWithDetails creates a new Error with the specified code, message, and details.
func NewWithDetails(code ErrorCode, message string, correlationID string, details interface{}) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		Details:       details,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case VSD_VALIDATION, VSD_BAD_REQUEST:
		return http.StatusBadRequest
	case VSD_AUTHZ:
		return http.StatusForbidden
	case VSD_AUTHN, VSD_JWT_INVALID, VSD_JWT_EXPIRED, VSD_JWT_MALFORMED:
		return http.StatusUnauthorized
	case VSD_NOT_FOUND, VSD_NOT_ELIGIBLE:
		return http.StatusNotFound
	case VSD_CONFLICT:
		return http.StatusConflict
	case VSD_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
