package middleware

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	apperrors "github.com/folklore/luck-server-go/internal/errors"
)

// Recoverer turns a handler panic into a JSON 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			log.Error().
				Str("requestId", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Interface("panic", rvr).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")

			if r.Header.Get("Connection") != "Upgrade" {
				writeError(w, apperrors.Internal("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Timeout bounds the request context. When the deadline passes before the
// handler wrote anything, the client gets a JSON 504.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) && ww.Status() == 0 {
				writeError(w, apperrors.Timeout())
			}
		})
	}
}
