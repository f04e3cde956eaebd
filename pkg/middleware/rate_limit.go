package middleware

import (
	"context"
	"net"
	"net/http"
	apperrors "receptionist/pkg/errors"
	httputil "receptionist/pkg/http"
	"receptionist/pkg/logger"
	"strconv"
	"sync"
	"time"
)

const RequesterKeyHeader = "X-Requester-Key"

// RateLimiter decides whether one more request for key fits in its budget.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Stop()
}

// KeyExtractor returns the rate limit key for a request, or "" to skip.
type KeyExtractor func(r *http.Request) string

// RequesterKeyExtractor limits writes only. It keys on the X-Requester-Key
// header and falls back to the client address.
func RequesterKeyExtractor(r *http.Request) string {
	if r.Method != http.MethodPost {
		return ""
	}
	if key := r.Header.Get(RequesterKeyHeader); key != "" {
		return "requester:" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return ""
	}
	return "ip:" + host
}

// InMemoryRateLimiter is a sliding-window limiter for a single process.
type InMemoryRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	limiter := &InMemoryRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *InMemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *InMemoryRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *InMemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[key]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false, nil
	}

	rl.requests[key] = append(valid, now)
	return true, nil
}

// RateLimit rejects requests over the limiter budget with 429. Limiter errors
// let the request through.
func RateLimit(limiter RateLimiter, extractor KeyExtractor, log *logger.Logger) func(http.Handler) http.Handler {
	if extractor == nil {
		extractor = RequesterKeyExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractor(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn("Rate limiter unavailable, allowing request",
					"request_id", RequestIDFrom(r.Context()),
					"key", key,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				log.Warn("Rate limit exceeded",
					"request_id", RequestIDFrom(r.Context()),
					"key", key,
					"path", r.URL.Path,
				)
				if retry, ok := limiter.(interface{ RetryAfter() time.Duration }); ok {
					w.Header().Set("Retry-After", strconv.Itoa(int(retry.RetryAfter().Seconds())))
				}
				_ = httputil.WriteError(w, apperrors.New(apperrors.CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
