package http

import (
	"fmt"
	"net/http"
)

// Codes carried in the data array of every non-2xx response.
const (
	CodeInvalidParameter = "ERR_INVALID_PARAMETER"
	CodeNotFound         = "ERR_NOT_FOUND"
	CodeTooManyRequests  = "ERR_TOO_MANY_REQUESTS"
	CodeInternal         = "ERR_INTERNAL"
)

// AppError is one entry of an error response. Status is the HTTP status the
// entry is rendered with; Err is kept for logs and never serialized.
type AppError struct {
	Code    string                 `json:"code" example:"ERR_INVALID_PARAMETER"`
	Message string                 `json:"message" example:"interval must be a positive span"`
	Field   string                 `json:"field,omitempty" example:"interval"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithParam attaches a detail such as the rejected value or a rule bound.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// InvalidParameterError is a 400 naming the offending query or path field.
func InvalidParameterError(field, message string) *AppError {
	return newAppError(CodeInvalidParameter, field, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return newAppError(CodeNotFound, "", message, http.StatusNotFound)
}

func TooManyRequestsError(message string) *AppError {
	return newAppError(CodeTooManyRequests, "", message, http.StatusTooManyRequests)
}

func InternalError(message string) *AppError {
	return newAppError(CodeInternal, "", message, http.StatusInternalServerError)
}
