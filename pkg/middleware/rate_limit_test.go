package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"receptionist/pkg/logger"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func postWithRequester(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pools/p/slots/s/book", nil)
	if key != "" {
		req.Header.Set(RequesterKeyHeader, key)
	}
	return req
}

func TestRequesterKeyExtractor(t *testing.T) {
	assert.Equal(t, "requester:alice", RequesterKeyExtractor(postWithRequester("alice")))

	req := postWithRequester("")
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "ip:10.0.0.7", RequesterKeyExtractor(req))

	get := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/b1", nil)
	get.Header.Set(RequesterKeyHeader, "alice")
	assert.Empty(t, RequesterKeyExtractor(get), "reads are not limited")
}

func TestInMemoryRateLimiter_Window(t *testing.T) {
	rl := NewInMemoryRateLimiter(2, 50*time.Millisecond)
	defer rl.Stop()
	ctx := context.Background()

	for range 2 {
		ok, err := rl.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "alice")
	assert.False(t, ok)

	ok, _ = rl.Allow(ctx, "bob")
	assert.True(t, ok, "keys are limited independently")

	time.Sleep(60 * time.Millisecond)
	ok, _ = rl.Allow(ctx, "alice")
	assert.True(t, ok, "budget refills after the window")
}

func TestRateLimit_RejectsPerRequester(t *testing.T) {
	rl := NewInMemoryRateLimiter(1, time.Minute)
	defer rl.Stop()
	handler := RateLimit(rl, RequesterKeyExtractor, logger.Discard())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithRequester("alice"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithRequester("alice"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithRequester("bob"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}

func (failingLimiter) Stop() {}

func TestRateLimit_FailsOpen(t *testing.T) {
	handler := RateLimit(failingLimiter{}, RequesterKeyExtractor, logger.Discard())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithRequester("alice"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedisRateLimiter_UnreachableFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rl := NewRedisRateLimiter(client, "test:ratelimit", 1, time.Minute)

	_, err := rl.Allow(context.Background(), "alice")
	require.Error(t, err)

	handler := RateLimit(rl, RequesterKeyExtractor, logger.Discard())(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithRequester("alice"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
