package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes exposed to clients.
const (
	CodeNotFound            = "RES_001"
	CodeInvalidRequest      = "REQ_001"
	CodeForbidden           = "AUTH_005"
	CodeInvalidState        = "CARD_001"
	CodeInsufficientFunds   = "PAY_001"
	CodeConcurrencyConflict = "TX_001"
	CodeDecryption          = "SEC_005"
	CodeInternal            = "SYS_001"
)

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Resources & Requests ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, message, http.StatusBadRequest)
}

// ---- Card Business Logic (CARD / PAY / TX) ----

func ErrInvalidState(message string) *AppError {
	return New(CodeInvalidState, message, http.StatusUnprocessableEntity)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance on source card", http.StatusPaymentRequired)
}

func ErrConcurrencyConflict(err error) *AppError {
	return Wrap(CodeConcurrencyConflict, "Card was modified concurrently, retry the operation", http.StatusConflict, err)
}

// ---- Security (SEC) ----

// ErrDecryption never exposes the underlying cause to clients.
func ErrDecryption(err error) *AppError {
	return Wrap(CodeDecryption, "Stored card data could not be decrypted", http.StatusInternalServerError, err)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrClientLocked() *AppError {
	return New("AUTH_004", "Client account is locked", http.StatusForbidden)
}

func ErrForbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap(CodeInternal, "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a REQ_001 validation error.
func Validation(message string) *AppError {
	return ErrInvalidRequest(message)
}
