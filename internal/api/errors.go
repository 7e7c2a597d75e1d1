package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/samcharles93/nibble/internal/engine"
)

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

// statusFor maps an engine error to an HTTP status and error type.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
