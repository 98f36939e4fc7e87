package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("bypassed outside production", func(t *testing.T) {
		for _, env := range []string{"test", "development", "stress"} {
			t.Setenv("APP_ENV", env)
			allowed, err := CheckRateLimit(ctx, nil, "signup", "ip:1.2.3.4", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed, "env %s should bypass", env)
		}
	})

	t.Run("nil client errors in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		allowed, err := CheckRateLimit(ctx, nil, "signup", "ip:1.2.3.4", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("counts against the limit", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		rdb := rateLimitClient(t)

		for i := 0; i < 3; i++ {
			allowed, err := CheckRateLimit(ctx, rdb, "send_chat", "user:7", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should pass", i+1)
		}
		allowed, err := CheckRateLimit(ctx, rdb, "send_chat", "user:7", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		// A different id keeps its own budget.
		allowed, err = CheckRateLimit(ctx, rdb, "send_chat", "user:8", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	newApp := func(h fiber.Handler) *fiber.App {
		app := fiber.New()
		app.Get("/guarded", h, func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		return app
	}
	hit := func(t *testing.T, app *fiber.App) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil))
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("limit enforced per IP", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := newApp(RateLimit(rateLimitClient(t), 2, time.Minute))

		assert.Equal(t, http.StatusOK, hit(t, app))
		assert.Equal(t, http.StatusOK, hit(t, app))
		assert.Equal(t, http.StatusTooManyRequests, hit(t, app))
	})

	t.Run("bypassed in test env", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		app := newApp(RateLimit(nil, 1, time.Minute))

		assert.Equal(t, http.StatusOK, hit(t, app))
		assert.Equal(t, http.StatusOK, hit(t, app))
	})

	t.Run("fail-open lets requests through without redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := newApp(RateLimit(nil, 1, time.Minute))

		assert.Equal(t, http.StatusOK, hit(t, app))
	})

	t.Run("fail-closed rejects without redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := newApp(RateLimitWithPolicy(nil, 1, time.Minute, FailClosed))

		assert.Equal(t, http.StatusServiceUnavailable, hit(t, app))
	})
}
