package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequireAuth verifies the bearer token with the identity provider and loads
// (or creates) the account, storing it on the request context.
func (h *Handler) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}

		identity, err := h.svc.Verifier().Verify(c.Request().Context(), token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		user, err := h.svc.EnsureUser(c.Request().Context(), identity)
		if err != nil {
			return fail(c, err, "account")
		}

		c.Set("user", user)
		return next(c)
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// WebSocket clients cannot set headers from the browser.
	return c.QueryParam("token")
}

// RateLimit enforces a sliding-window request limit per user, tracked in a
// sorted set keyed by request timestamp. A broken backend fails open.
func (h *Handler) RateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := currentUser(c)
		if user == nil {
			return next(c)
		}
		ctx := c.Request().Context()
		key := "ratelimit:" + user.ID
		now := time.Now()
		windowStart := now.Add(-h.config.RateLimitWindow)

		if err := h.backend.ZRemRangeByScore(ctx, key, 0, float64(windowStart.UnixMilli())); err != nil {
			log.Printf("WARN: rate limiter unavailable: %v", err)
			return next(c)
		}
		count, err := h.backend.ZCard(ctx, key)
		if err != nil {
			log.Printf("WARN: rate limiter unavailable: %v", err)
			return next(c)
		}

		limit := int64(h.config.RateLimitRequests)
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count >= limit {
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(h.config.RateLimitWindow.Seconds())))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}

		member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.New().String()[:8])
		if err := h.backend.ZAdd(ctx, key, float64(now.UnixMilli()), member); err != nil {
			log.Printf("WARN: rate limiter unavailable: %v", err)
		}
		_ = h.backend.Expire(ctx, key, h.config.RateLimitWindow)

		return next(c)
	}
}
