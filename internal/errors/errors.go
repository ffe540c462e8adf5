// Package errors defines the gateway's service error taxonomy and its JSON
// wire form.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ServiceError is an error with an HTTP status and a stable machine code.
type ServiceError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteJSON renders the error to the response in the standard envelope.
func (e *ServiceError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": e})
}

func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "missing or invalid credentials"
	}
	return &ServiceError{
		Code:       "unauthorized",
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func BadRequest(message string) *ServiceError {
	return &ServiceError{
		Code:       "bad_request",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// RateLimitExceeded reports that the caller exhausted its request budget.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return &ServiceError{
		Code:       "rate_limit_exceeded",
		Message:    fmt.Sprintf("rate limit of %d requests per %s exceeded", limit, window),
		HTTPStatus: http.StatusTooManyRequests,
		Details:    map[string]any{"limit": limit, "window": window},
	}
}

// UpstreamUnavailable reports a backend service that could not be reached or
// returned an unusable payload.
func UpstreamUnavailable(service string) *ServiceError {
	return &ServiceError{
		Code:       "upstream_unavailable",
		Message:    fmt.Sprintf("service %s is unavailable", service),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"service": service},
	}
}

// PayloadTooDeep reports a JSON body nested past the conversion depth limit.
func PayloadTooDeep() *ServiceError {
	return &ServiceError{
		Code:       "payload_too_deep",
		Message:    "request payload exceeds the maximum nesting depth",
		HTTPStatus: http.StatusBadRequest,
	}
}
