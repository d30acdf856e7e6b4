package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/epicvibe/platform/internal/auth"
	"github.com/epicvibe/platform/internal/epicvibe"
)

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeyVerbose
)

// errorDetail marks requests whose error envelopes may include the
// underlying error text.
func errorDetail(show bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ctxKeyVerbose, show)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verbose(r *http.Request) bool {
	show, _ := r.Context().Value(ctxKeyVerbose).(bool)
	return show
}

// recoverer turns a panic into a 500 envelope.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.Error("panic serving request",
					"panic", rvr,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
					"stack", string(debug.Stack()),
				)
				writeError(w, r, http.StatusInternalServerError, "Internal server error", fmt.Errorf("%v", rvr))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate attaches the caller's identity. With demo set, a missing or
// unusable token falls back to auth.DemoUser instead of failing.
func authenticate(v Authenticator, demo bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))

			var (
				u   epicvibe.User
				err error
			)
			if token == "" {
				err = errNoToken
			} else {
				u, err = v.Verify(token)
			}

			if err != nil {
				if !demo {
					writeError(w, r, http.StatusUnauthorized, authMessage(err), nil)
					return
				}
				if token != "" {
					logger.Debug("demo mode: ignoring bad token", "error", err)
				}
				u = auth.DemoUser
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errNoToken = fmt.Errorf("no token: %w", epicvibe.ErrUnauthorized)

func authMessage(err error) string {
	switch {
	case errors.Is(err, errNoToken):
		return "Authentication required. No token provided."
	case errors.Is(err, auth.ErrTokenExpired):
		return "Token expired. Please login again."
	}
	return "Invalid token. Please login again."
}

func userFrom(r *http.Request) epicvibe.User {
	return r.Context().Value(ctxKeyUser).(epicvibe.User)
}
