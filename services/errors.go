package services

import "errors"

// ErrorCode classifies a failed domain operation. Codes surface synchronously
// to the caller; none of them ever produces a published event.
type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeConflict        ErrorCode = "CONFLICT"
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is the typed error returned by domain operations.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

func InvalidInput(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message}
}

func ExternalService(message string, err error) *AppError {
	return &AppError{Code: CodeExternalService, Message: message, Err: err}
}

// CodeOf extracts the error code, or empty for untyped errors.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
