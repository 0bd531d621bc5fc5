package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorUnwraps(t *testing.T) {
	err := Newf(ErrNotFound, http.StatusNotFound, "country %q", "FR")

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected AppError to unwrap to its sentinel")
	}
	if got := err.Error(); got != `not found: country "FR"` {
		t.Errorf("Error() = %q", got)
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("city %q: %w", "x", ErrNotFound), http.StatusNotFound},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrTimeout, http.StatusServiceUnavailable},
		{ErrCorruptWorld, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{New(ErrCorruptWorld, 500, "bad blob"), 500},
	}
	for _, tt := range tests {
		if got := HTTPStatusCode(tt.err); got != tt.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
