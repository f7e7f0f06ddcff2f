// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package api

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
)

// statusRecorder captures the status code and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *statusRecorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
		return route.GetName()
	}
	return "unknown"
}

// logging logs one line per request and reports it to metrics.
func logging(logger *slog.Logger, metrics MetricsRecorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := routeName(r)
			metrics.RecordRequest(route, wrapped.status)
			logger.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", wrapped.status),
				slog.Int("size", wrapped.size),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// recovery turns a panic into a 500 JSON response.
func recovery(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						slog.Any("error", rec),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: APIError{
						Code:    CodeInternalError,
						Message: "internal server error",
					}})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type callerKey struct{}

// callerID returns the authenticated account ID stored by authenticate.
func callerID(ctx context.Context) (ulid.ULID, bool) {
	id, ok := ctx.Value(callerKey{}).(ulid.ULID)
	return id, ok
}

// authenticate requires a valid bearer token and stores the caller's
// account ID in the request context.
func authenticate(tokens TokenVerifier, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(r.Context(), logger, w, errUnauthorized("authentication required"))
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				logger.DebugContext(r.Context(), "rejected token", "error", err)
				writeError(r.Context(), logger, w, errUnauthorized("invalid or expired token"))
				return
			}
			id, err := claims.AccountID()
			if err != nil {
				writeError(r.Context(), logger, w, errUnauthorized("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// throttle limits requests per client IP. The key is the peer address
// unless trustForwarded is set, in which case X-Forwarded-For is honoured.
// Limiter failures are logged and the request is let through.
func throttle(limiter RateLimiter, trustForwarded bool, metrics MetricsRecorder, logger *slog.Logger) mux.MiddlewareFunc {
	keyOf := PeerIP
	if trustForwarded {
		keyOf = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := keyOf(r)
			decision, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					"client_ip", ip, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				metrics.RecordRateLimited()
				retry := int(math.Ceil(decision.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				writeError(r.Context(), logger, w, errRateLimited())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
