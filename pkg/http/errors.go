package http

import (
	"fmt"
	"net/http"
)

// AppError is the error entry rendered in the data array of a failed response.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Status  int            `json:"-"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError builds an error bound to an optional request field.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithError attaches the cause. It is logged but never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// WithParam adds a detail rendered next to the message, e.g. the minimum bar count.
func (e *AppError) WithParam(key string, value any) *AppError {
	if e.Params == nil {
		e.Params = map[string]any{}
	}
	e.Params[key] = value
	return e
}

func statusError(status int, code string) func(string) *AppError {
	return func(message string) *AppError {
		return NewAppError(code, "", message, status)
	}
}

var (
	BadRequestError      = statusError(http.StatusBadRequest, "ERR_BAD_REQUEST")
	NotFoundError        = statusError(http.StatusNotFound, "ERR_NOT_FOUND")
	UnprocessableError   = statusError(http.StatusUnprocessableEntity, "ERR_UNPROCESSABLE")
	TooManyRequestsError = statusError(http.StatusTooManyRequests, "ERR_TOO_MANY_REQUESTS")
	UnavailableError     = statusError(http.StatusServiceUnavailable, "ERR_UNAVAILABLE")
	InternalError        = statusError(http.StatusInternalServerError, "ERR_INTERNAL")
)
