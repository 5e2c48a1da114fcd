package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenBucket_Allow(t *testing.T) {
	// Create a bucket with capacity 5, refill rate 1 token/second
	tb := NewTokenBucket(5, 1.0)

	// Should allow 5 requests immediately (burst capacity)
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be denied (bucket empty)
	if tb.Allow() {
		t.Error("6th request should be denied")
	}

	// Wait 2 seconds for 2 tokens to refill
	time.Sleep(2 * time.Second)

	// Should allow 2 more requests
	if !tb.Allow() {
		t.Error("Request after 2s should be allowed")
	}
	if !tb.Allow() {
		t.Error("2nd request after 2s should be allowed")
	}

	// Next request should be denied again
	if tb.Allow() {
		t.Error("3rd request after 2s should be denied")
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	tb := NewTokenBucket(3, 1.0)

	// Drain the bucket
	for i := 0; i < 3; i++ {
		tb.Allow()
	}

	// Should be empty
	if tb.Allow() {
		t.Error("Bucket should be empty")
	}

	// Reset
	tb.Reset()

	// Should be full again
	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Request %d should be allowed after reset", i+1)
		}
	}
}

func TestTokenBucket_Tokens(t *testing.T) {
	tb := NewTokenBucket(10, 1.0)

	tokens := tb.Tokens()
	if tokens != 10.0 {
		t.Errorf("Expected 10 tokens, got %f", tokens)
	}

	// Use one token
	tb.Allow()

	tokens = tb.Tokens()
	if tokens != 9.0 {
		t.Errorf("Expected 9 tokens after one request, got %f", tokens)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	// Create limiter: 2 requests burst, 1 per second
	rl := NewRateLimiter(2, 1.0, 0)

	// First two requests for key1 should succeed
	if !rl.Allow("key1") {
		t.Error("First request for key1 should be allowed")
	}
	if !rl.Allow("key1") {
		t.Error("Second request for key1 should be allowed")
	}

	// Third request should fail (bucket empty)
	if rl.Allow("key1") {
		t.Error("Third request for key1 should be denied")
	}

	// Requests for key2 should succeed (separate bucket)
	if !rl.Allow("key2") {
		t.Error("First request for key2 should be allowed")
	}
	if !rl.Allow("key2") {
		t.Error("Second request for key2 should be allowed")
	}

	// Wait for refill
	time.Sleep(1100 * time.Millisecond)

	// Should allow one more request for key1
	if !rl.Allow("key1") {
		t.Error("Request after 1s should be allowed")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(1, 1.0, 0)

	// Drain the bucket for key1
	rl.Allow("key1")

	// Should be denied
	if rl.Allow("key1") {
		t.Error("Second request should be denied")
	}

	// Reset key1
	rl.Reset("key1")

	// Should be allowed again
	if !rl.Allow("key1") {
		t.Error("Request after reset should be allowed")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(100, 100.0, 0)

	// Simulate concurrent requests
	done := make(chan bool)
	numGoroutines := 10
	requestsPerGoroutine := 20

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < requestsPerGoroutine; j++ {
				rl.Allow("concurrent-test")
			}
			done <- true
		}(i)
	}

	// Wait for all goroutines to complete
	for i := 0; i < numGoroutines; i++ {
		<-done
	}
}

func TestMiddleware_PerIP(t *testing.T) {
	m := NewMiddleware(&Config{
		Capacity:   2,
		RefillRate: 1.0 / 60.0,
		BucketTTL:  0,
	})

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/sharing/abc/verify", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2 passes, third is throttled
	if code := doRequest("10.0.0.1"); code != http.StatusOK {
		t.Errorf("First request should pass, got %d", code)
	}
	if code := doRequest("10.0.0.1"); code != http.StatusOK {
		t.Errorf("Second request should pass, got %d", code)
	}
	if code := doRequest("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("Third request should be throttled, got %d", code)
	}

	// A different IP has its own bucket
	if code := doRequest("10.0.0.2"); code != http.StatusOK {
		t.Errorf("Request from different IP should pass, got %d", code)
	}
}

func BenchmarkTokenBucket_Allow(b *testing.B) {
	tb := NewTokenBucket(1000000, 1000000.0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tb.Allow()
	}
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(1000000, 1000000.0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.Allow("benchmark-key")
	}
}
