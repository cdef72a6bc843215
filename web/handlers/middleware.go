// Package handlers provides HTTP handlers and middleware for the Keepsake
// memory API.
package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// RequireSecret is middleware that enforces a shared-secret Bearer token.
// An empty configured secret rejects everything: the protected routes stay
// closed until one is set.
func RequireSecret(next http.Handler, secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter wraps a rate.Limiter for HTTP middleware.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
// reqPerSec is the sustained rate, burst is the maximum burst size.
// Non-positive values fall back to 20 req/sec with a burst of 40.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	if reqPerSec <= 0 {
		reqPerSec = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/reqPerSec)), burst),
	}
}

// RateLimitMiddleware enforces rate limiting on HTTP requests.
func RateLimitMiddleware(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
