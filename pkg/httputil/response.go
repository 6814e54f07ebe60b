package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/logger"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/validator"
)

// Response is the JSON envelope returned by every endpoint.
type Response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse describes a failed call. Details carries the values a caller
// needs to correct and retry, e.g. the SKU and available quantity.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   map[string]any    `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a successful envelope around data.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Success: true, Data: data})
}

// WriteError maps err to an error envelope. AppErrors keep their code,
// message and details; sentinel errors map to generic messages. Server-side
// failures are logged with the request-scoped logger when one is present.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	status := apperrors.HTTPStatus(err)
	body := &ErrorResponse{RequestID: requestID}

	if appErr, ok := apperrors.As(err); ok {
		body.Code = appErr.Code
		body.Message = appErr.Message
		body.Details = appErr.Details
	} else {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			body.Code, body.Message = apperrors.CodeNotFound, "resource not found"
		case errors.Is(err, apperrors.ErrInvalidInput):
			body.Code, body.Message = apperrors.CodeValidation, err.Error()
		case errors.Is(err, apperrors.ErrPersistence):
			body.Code, body.Message = apperrors.CodePersistenceFailure, "the operation could not be stored"
		default:
			body.Code, body.Message = apperrors.CodeInternal, "an internal error occurred"
		}
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("code", body.Code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: body})
}

// WriteValidationError writes a 400 response. Struct validation failures are
// reported per field.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    apperrors.CodeValidation,
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: apperrors.CodeValidation, Message: err.Error()},
	})
}
