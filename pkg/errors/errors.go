package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound reports that an ancestor key (country, city, zip, street)
	// does not exist in the world. Recoverable; returned to the caller.
	ErrNotFound = errors.New("not found")
	// ErrCorruptWorld reports an unparseable or truncated world blob. Fatal
	// to the decode call, harmless to any world already in memory.
	ErrCorruptWorld = errors.New("corrupt world data")
	// ErrBuilderFinalized reports a builder operation after Finalize. This is
	// a programming error, not a data condition.
	ErrBuilderFinalized = errors.New("builder already finalized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
