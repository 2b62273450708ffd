package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("user-1"))
	assert.True(t, rl.Allow("user-1"))
	// Burst exhausted.
	assert.False(t, rl.Allow("user-1"))

	// Other keys are limited independently.
	assert.True(t, rl.Allow("user-2"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, rl.Middleware(func(c echo.Context) string {
		return c.Request().Header.Get("X-User-ID")
	}))

	do := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User-ID", userID)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("7"))
	assert.Equal(t, http.StatusTooManyRequests, do("7"))
	assert.Equal(t, http.StatusOK, do("8"))
}
