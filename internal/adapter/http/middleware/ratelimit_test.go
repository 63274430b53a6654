package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redisStore "payout-gateway/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimiter(t *testing.T, rule RateLimitRule) *gin.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisStore.NewRateLimitStore(client)

	router := gin.New()
	router.GET("/test", RateLimiter(store, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	return router
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := newTestRateLimiter(t, RateLimitRule{Limit: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderChatID, "chat-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	router := newTestRateLimiter(t, RateLimitRule{Limit: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderChatID, "chat-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderChatID, "chat-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_IsolatesIdentifiers(t *testing.T) {
	router := newTestRateLimiter(t, RateLimitRule{Limit: 1, Window: time.Minute})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderChatID, "chat-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// A different chat id has its own window.
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderChatID, "chat-2")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
