package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToBudget(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 3, WindowDuration: time.Minute})
	defer rl.Stop()

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}

func TestRateLimiterRefills(t *testing.T) {
	// 600 requests/minute refills a token every 100ms.
	rl := New(Config{MaxRequestsPerMinute: 600, WindowDuration: time.Minute})
	defer rl.Stop()

	key := "10.0.0.1"
	for i := 0; i < 600; i++ {
		require.True(t, rl.allow(key))
	}
	require.False(t, rl.allow(key))

	time.Sleep(150 * time.Millisecond)
	assert.True(t, rl.allow(key))
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1, WindowDuration: time.Minute})
	defer rl.Stop()

	require.True(t, rl.allow("1.1.1.1"))
	require.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"))
}
