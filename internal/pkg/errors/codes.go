package errors

import (
	"fmt"
	"net/http"
)

// Error code constants. Errors carry code + message; legacy JSON clients read
// the message from the "error" field, newer clients switch on the code.

// Namespace error codes.
const (
	CodeBadNamespace      = "BAD_NAMESPACE"
	CodeNamespaceNotFound = "NAMESPACE_NOT_FOUND"
	CodeNamespaceExists   = "NAMESPACE_ALREADY_EXISTS"
)

// Schema error codes.
const (
	CodeTypeNotFound     = "TYPE_NOT_FOUND"
	CodeReqNotFound      = "REQUISITE_NOT_FOUND"
	CodeHasDependents    = "HAS_DEPENDENTS"
	CodeHasValues        = "HAS_VALUES"
	CodeBadBaseKind      = "BAD_BASE_KIND"
	CodeInvalidReference = "INVALID_REFERENCE"
)

// Object error codes.
const (
	CodeObjectNotFound = "OBJECT_NOT_FOUND"
	CodeHasChildren    = "HAS_CHILDREN"
	CodeDuplicateOrder = "DUPLICATE_ORDER"
	CodeIDTaken        = "ID_ALREADY_TAKEN"
)

// Auth error codes.
const (
	CodeAuthFailed   = "AUTH_FAILED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeRoleDenied   = "ROLE_DENIED"
	CodeBadXSRF      = "BAD_XSRF"
	CodeUserExists   = "USER_ALREADY_EXISTS"
	CodeUserNotFound = "USER_NOT_FOUND"
)

// Protocol error codes.
const (
	CodeUnknownAction    = "UNKNOWN_ACTION"
	CodeBadRequest       = "BAD_REQUEST"
	CodeReportNotFound   = "REPORT_NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// Convenience constructors using predefined codes.

// ErrTypeNotFoundf creates a type not found error.
func ErrTypeNotFoundf(typeID int64) *AppError {
	return &AppError{
		Code:       CodeTypeNotFound,
		Message:    fmt.Sprintf("type not found: %d", typeID),
		HTTPStatus: http.StatusNotFound,
	}
}

// ErrHasDependents creates the conflict returned when a type still has
// data instances and no cascade flag was given.
func ErrHasDependents() *AppError {
	return &AppError{
		Code:       CodeHasDependents,
		Message:    "type has data instances; repeat with cascade",
		HTTPStatus: http.StatusConflict,
	}
}

// ErrHasValues creates the conflict returned when a requisite still has
// stored values and no force flag was given.
func ErrHasValues() *AppError {
	return &AppError{
		Code:       CodeHasValues,
		Message:    "requisite has stored values; repeat with force",
		HTTPStatus: http.StatusConflict,
	}
}

// ErrHasChildren creates the conflict returned when an object still has
// child entities and no cascade flag was given.
func ErrHasChildren() *AppError {
	return &AppError{
		Code:       CodeHasChildren,
		Message:    "object has children; repeat with cascade",
		HTTPStatus: http.StatusConflict,
	}
}

// ErrBadNamespace creates the rejection for a malformed namespace name.
func ErrBadNamespace(name string) *AppError {
	return &AppError{
		Code:       CodeBadNamespace,
		Message:    "bad namespace name: " + name,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrUnknownAction creates the rejection for an unrecognized action code.
func ErrUnknownAction(action string) *AppError {
	return &AppError{
		Code:       CodeUnknownAction,
		Message:    "unknown action: " + action,
		HTTPStatus: http.StatusBadRequest,
	}
}
