package server

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/giygas/desprescricao-api/interfaces"
	"github.com/giygas/desprescricao-api/metrics"
	"github.com/juju/ratelimit"
)

// Default bucket: 3 tokens per second, 1000 tokens burst
const (
	DefaultRefillRate = 3
	DefaultCapacity   = 1000
)

var _ interfaces.BucketPruner = (*RateLimiter)(nil)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	clients  map[string]*ratelimit.Bucket
	mu       sync.RWMutex
	rate     float64
	capacity int64
}

// NewRateLimiter creates a rate limiter refilling rate tokens per second
func NewRateLimiter(rate float64, capacity int64) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*ratelimit.Bucket),
		rate:     rate,
		capacity: capacity,
	}
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientIP]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if bucket, exists = rl.clients[clientIP]; !exists {
		bucket = ratelimit.NewBucketWithRate(rl.rate, rl.capacity)
		rl.clients[clientIP] = bucket
		metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
	}
	return bucket
}

// PruneBuckets drops the buckets that refilled completely, meaning the
// client has been idle, and returns how many were removed.
func (rl *RateLimiter) PruneBuckets() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, bucket := range rl.clients {
		if bucket.Available() == bucket.Capacity() {
			delete(rl.clients, ip)
			removed++
		}
	}
	metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
	return removed
}

// Clients returns the number of tracked clients
func (rl *RateLimiter) Clients() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.clients)
}

// getTokenCost prices a request. Exponential schedules run for years and
// cost more than tiered ones.
func getTokenCost(r *http.Request) int64 {
	switch r.URL.Path {
	case "/", "/metrics":
		return 0
	case "/health", "/protocolos":
		return 5
	case "/desprescrever":
		protocol := r.URL.Query().Get("protocolo")
		if protocol == "" {
			protocol = r.URL.Query().Get("protocol")
		}
		if strings.EqualFold(strings.TrimSpace(protocol), "exponential") {
			return 40
		}
		return 20
	}
	return 10
}

// Middleware rejects requests once the client's bucket is empty
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	limit := strconv.FormatInt(rl.capacity, 10)
	rate := strconv.FormatFloat(rl.rate, 'f', -1, 64)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := rl.getBucket(r.RemoteAddr)
		cost := getTokenCost(r)

		w.Header().Set("X-RateLimit-Limit", limit)
		w.Header().Set("X-RateLimit-Rate", rate)

		if bucket.TakeAvailable(cost) < cost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			respondWithJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}
