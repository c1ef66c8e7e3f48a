package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mkarpoff/entsync/internal/server/handlers"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, setupTestLogger())
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("actor:alice"), "request %d within limit", i+1)
	}
	assert.False(t, rl.Allow("actor:alice"), "limit exhausted")

	// Другой ключ не затронут
	assert.True(t, rl.Allow("actor:bob"))
}

func TestRateLimiter_RefillAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond, setupTestLogger())
	defer rl.Stop()

	assert.True(t, rl.Allow("ip:1.2.3.4"))
	assert.False(t, rl.Allow("ip:1.2.3.4"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.Allow("ip:1.2.3.4"), "tokens refilled after window")
}

func TestRateLimitMiddleware_TooManyRequests(t *testing.T) {
	mw := RateLimitMiddleware(2, time.Minute, setupTestLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := mw(next)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/sync/push", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		return req
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newReq())
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimitMiddleware_KeyedByActor(t *testing.T) {
	mw := RateLimitMiddleware(1, time.Minute, setupTestLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := mw(next)

	asActor := func(actor string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/sync/push", nil)
		req.RemoteAddr = "10.0.0.1:1234" // одинаковый IP за прокси
		ctx := context.WithValue(req.Context(), handlers.ActorKey, actor)
		return req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, asActor("alice"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, asActor("alice"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Другой актор за тем же IP не ограничен
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, asActor("bob"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:   "remote addr fallback",
			remote: "10.0.0.1:1234",
			want:   "10.0.0.1:1234",
		},
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4"},
			remote:  "10.0.0.1:1234",
			want:    "1.2.3.4",
		},
		{
			name:    "x-forwarded-for chain takes first",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"},
			remote:  "10.0.0.1:1234",
			want:    "1.2.3.4",
		},
		{
			name:    "x-real-ip",
			headers: map[string]string{"X-Real-IP": "9.9.9.9"},
			remote:  "10.0.0.1:1234",
			want:    "9.9.9.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
