package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds rate limiting configuration for the public share endpoints.
// The verify and open endpoints are reachable without authentication, so
// each client IP gets its own bucket.
type Config struct {
	Capacity   int     // Max burst per IP
	RefillRate float64 // Requests per second per IP

	// Bucket TTL (how long to keep inactive buckets in memory)
	BucketTTL time.Duration

	// Headers to include in response
	IncludeHeaders bool
}

// DefaultConfig returns a sensible default configuration: 30 requests per
// minute per IP with a burst of 30.
func DefaultConfig() *Config {
	return &Config{
		Capacity:       30,
		RefillRate:     30.0 / 60.0,
		BucketTTL:      1 * time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware holds the rate limiting middleware state
type Middleware struct {
	config    *Config
	ipLimiter *RateLimiter
}

// NewMiddleware creates a new per-IP rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	return &Middleware{
		config:    config,
		ipLimiter: NewRateLimiter(config.Capacity, config.RefillRate, config.BucketTTL),
	}
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		if ip != "" && !m.ipLimiter.Allow(ip) {
			m.rateLimitExceeded(w, r, ip)
			return
		}

		if m.config.IncludeHeaders && ip != "" {
			w.Header().Set("X-RateLimit-Limit-IP", fmt.Sprintf("%d", m.config.Capacity))
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitExceeded handles rate limit exceeded responses
func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, ip string) {
	slog.Warn("Rate limit exceeded",
		"ip", ip,
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)

	w.Write([]byte(`{
		"error": "rate_limit_exceeded",
		"message": "Too many requests. Please try again later."
	}`))
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header (set by some proxies/load balancers)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is in format "IP:port", we only want the IP
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}

	return addr
}
