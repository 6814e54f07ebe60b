package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrConflict, ErrBusinessRule,
		ErrPersistence, ErrServiceUnavail, ErrInternal,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString(t *testing.T) {
	withCause := &AppError{Code: "X", Message: "broken", Err: fmt.Errorf("disk full")}
	assert.Equal(t, "X: broken: disk full", withCause.Error())

	plain := &AppError{Code: "NOT_FOUND", Message: "order 1 not found"}
	assert.Equal(t, "NOT_FOUND: order 1 not found", plain.Error())
}

func TestAppError_WithDetails(t *testing.T) {
	err := Validation("bad").WithDetails(map[string]any{"field": "sku"})
	assert.Equal(t, "sku", err.Details["field"])
}

// --- Constructors ---

func TestNotFound(t *testing.T) {
	err := NotFound("order", "01A15P01")
	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "01A15P01")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestValidation(t *testing.T) {
	err := Validationf("quantity must be positive, got %d", 0)
	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "quantity must be positive, got 0", err.Message)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestBusinessRule_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("%w: stock", ErrBusinessRule)
	err := BusinessRule("INSUFFICIENT_STOCK", http.StatusConflict, "not enough", cause)
	assert.True(t, errors.Is(err, ErrBusinessRule))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestPersistence_WrapsBothSentinelAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause)
	assert.Equal(t, CodePersistenceFailure, err.Code)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.NotContains(t, err.Message, "connection reset")
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NotFound("item", "MUG-01"))
	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, appErr.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

// --- HTTPStatus mapping ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Conflict("dup"), http.StatusConflict},
		{"wrapped not found", fmt.Errorf("x: %w", ErrNotFound), http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"business rule", fmt.Errorf("x: %w", ErrBusinessRule), http.StatusUnprocessableEntity},
		{"unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
