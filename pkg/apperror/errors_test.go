package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[PAY_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("PAY_001", "test", http.StatusBadRequest).Unwrap())
}

func TestTaxonomy(t *testing.T) {
	inner := fmt.Errorf("boom")
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"NotFound", ErrNotFound("Card"), "RES_001", 404},
		{"InvalidRequest", ErrInvalidRequest("bad"), "REQ_001", 400},
		{"Forbidden", ErrForbidden("no"), "AUTH_005", 403},
		{"InvalidState", ErrInvalidState("blocked"), "CARD_001", 422},
		{"InsufficientFunds", ErrInsufficientFunds(), "PAY_001", 402},
		{"ConcurrencyConflict", ErrConcurrencyConflict(inner), "TX_001", 409},
		{"Decryption", ErrDecryption(inner), "SEC_005", 500},
		{"Internal", InternalError(inner), "SYS_001", 500},
		{"Validation", Validation("bad"), "REQ_001", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"UsernameExists", ErrUsernameExists(), "AUTH_002", 409},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"ClientLocked", ErrClientLocked(), "AUTH_004", 403},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestDecryptionMessageHidesCause(t *testing.T) {
	err := ErrDecryption(fmt.Errorf("cipher: message authentication failed"))
	assert.NotContains(t, err.Message, "authentication")
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrNotFound("Card"))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Client")
	assert.Contains(t, err.Message, "Client")
}
