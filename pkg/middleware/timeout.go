package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Timeout cancels the request context after d and, when the handler has not
// produced any output yet, answers with a JSON 504. Writes from the abandoned
// handler goroutine are discarded after the timeout reply has been sent.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if tw.expire() {
					slog.Warn("request timed out",
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", GetRequestID(r.Context()),
						"timeout", d,
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					w.Write([]byte(`{"error":"request timed out"}`))
				}
			}
		})
	}
}

// timeoutWriter serialises the race between the handler goroutine and the
// timeout reply: whichever side writes first claims the response, the other
// side's writes are dropped.
type timeoutWriter struct {
	http.ResponseWriter
	mu    sync.Mutex
	state writeState
}

type writeState int

const (
	writeOpen writeState = iota
	writeClaimed
	writeExpired
)

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.state == writeExpired {
		return
	}
	tw.state = writeClaimed
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.state == writeExpired {
		return len(b), nil
	}
	tw.state = writeClaimed
	return tw.ResponseWriter.Write(b)
}

// expire marks the response as timed out and reports whether the timeout
// reply may be written, i.e. the handler had not claimed the response yet.
func (tw *timeoutWriter) expire() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.state == writeClaimed {
		return false
	}
	tw.state = writeExpired
	return true
}
