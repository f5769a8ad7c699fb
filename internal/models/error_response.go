package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Виды ошибок сервиса, проверяются через errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrStateConflict = errors.New("state conflict")
)

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"reason"`
	Kind       error  `json:"-"`
	Err        error  `json:"-"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message}
}

// NewValidationError создает ошибку некорректного ввода.
func NewValidationError(format string, args ...any) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    fmt.Sprintf(format, args...),
		Kind:       ErrValidation,
	}
}

// NewNotFoundError создает ошибку отсутствующей сущности.
func NewNotFoundError(entity, id string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("%s %s not found", entity, id),
		Kind:       ErrNotFound,
	}
}

// NewConflictError создает ошибку конфликта с текущими данными.
func NewConflictError(format string, args ...any) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusConflict,
		Message:    fmt.Sprintf(format, args...),
		Kind:       ErrConflict,
	}
}

// NewStateConflictError оборачивает недопустимый переход состояния.
func NewStateConflictError(err error) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusConflict,
		Message:    err.Error(),
		Kind:       ErrStateConflict,
		Err:        err,
	}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// Unwrap открывает вид ошибки и исходную причину для errors.Is/As.
func (e *ErrorResponse) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
