package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

// remoteError is the error envelope our services respond with.
type remoteError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// turns it into an error. Structured envelopes keep their code.
func ParseResponseError(resp *http.Response, collaborator string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", collaborator, resp.StatusCode, err)
	}

	var envelope remoteError
	if json.Unmarshal(body, &envelope) != nil || envelope.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", collaborator, resp.StatusCode, body)
	}

	msg := fmt.Sprintf("%s: %s", collaborator, envelope.Error.Message)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(collaborator, envelope.Error.Message)
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.Validation(msg)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(msg)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.Unavailable(msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", collaborator, resp.StatusCode, envelope.Error.Code, envelope.Error.Message)
	default:
		return &apperrors.AppError{Code: envelope.Error.Code, Message: msg, Status: resp.StatusCode}
	}
}
