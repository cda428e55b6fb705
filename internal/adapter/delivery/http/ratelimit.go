package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
)

type rateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// clientAddr is the host part of the remote address, which RealIP may already
// have replaced with a forwarded client address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitRate rejects requests from clients that used up their window with 429.
// When the limiter itself fails the request is let through.
func limitRate(limiter rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientAddr(r))
			if err != nil {
				httplog.LogEntrySetField(r.Context(), "ratelimit_err", slog.AnyValue(err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, rateLimitedResponse)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
