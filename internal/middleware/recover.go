package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/chorely/chorely/internal/observability"
	pkghttp "github.com/chorely/chorely/pkg/http"
)

// Recover turns a panic into a 500 and reports it to Sentry.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(stack)),
				)
				observability.CapturePanic(r.Context(), rec, stack)

				pkghttp.WriteInternalError(w, "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
