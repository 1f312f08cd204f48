package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	// Relay core taxonomy
	ErrInvalidAction       ErrorType = "INVALID_ACTION"
	ErrInvalidAddress      ErrorType = "INVALID_ADDRESS"
	ErrEncodingFailed      ErrorType = "ENCODING_FAILED"
	ErrSigningFailed       ErrorType = "SIGNING_FAILED"
	ErrTransactionRejected ErrorType = "TRANSACTION_REJECTED"
	ErrTransactionReverted ErrorType = "TRANSACTION_REVERTED"
	ErrEventNotFound       ErrorType = "EVENT_NOT_FOUND"

	// Gateway
	ErrAuthFailed     ErrorType = "AUTH_FAILED"
	ErrForbidden      ErrorType = "FORBIDDEN"
	ErrRateLimited    ErrorType = "RATE_LIMITED"
	ErrQuotaExceeded  ErrorType = "QUOTA_EXCEEDED"
	ErrReadOnly       ErrorType = "READ_ONLY"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrConflict       ErrorType = "CONFLICT"
	ErrUpstream       ErrorType = "UPSTREAM_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type         ErrorType `json:"code"`
	Message      string    `json:"message"`
	Suggestion   string    `json:"suggestion,omitempty"`
	RevertReason string    `json:"revert_reason,omitempty"`
	HTTPStatus   int       `json:"-"`
	Cause        error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.RevertReason != "" {
		msg = fmt.Sprintf("%s (revert: %s)", msg, e.RevertReason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewInvalidAddress(field, value string) *AppError {
	return New(ErrInvalidAddress, fmt.Sprintf("%s is not a 20-byte address: %q", field, value), nil)
}

// NewReverted builds a TRANSACTION_REVERTED error carrying the decoded revert reason, if any.
func NewReverted(msg, reason string, cause error) *AppError {
	e := New(ErrTransactionReverted, msg, cause)
	e.RevertReason = reason
	return e
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether the outermost AppError in err's chain has the given type.
// Causes wrapped inside that AppError are not consulted.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidAction, ErrInvalidAddress, ErrEncodingFailed, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrReadOnly, ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrTransactionReverted, ErrEventNotFound:
		return http.StatusUnprocessableEntity
	case ErrRateLimited, ErrQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrTransactionRejected, ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrInvalidAddress:
		return "Addresses must be 0x-prefixed 20-byte hex strings."
	case ErrTransactionRejected:
		return "Check station owner balance and RPC availability, then retry the whole flow."
	case ErrTransactionReverted:
		return "Inspect revert_reason. Retry with a fresh nonce if the nonce was already consumed."
	case ErrEventNotFound:
		return "The sponsored action did not take effect. Do not retry blindly."
	case ErrAuthFailed:
		return "Check API keys."
	case ErrRateLimited, ErrQuotaExceeded:
		return "Slow down or wait for the daily quota to reset."
	case ErrReadOnly:
		return "The relay is in read-only mode."
	default:
		return ""
	}
}
