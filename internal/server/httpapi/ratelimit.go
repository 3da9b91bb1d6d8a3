package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Defaults for the limiter guarding the /auth endpoints.
const (
	AuthRateLimit  = 20
	AuthRateWindow = time.Minute
)

// RedisRateStore is a fixed-window echo rate limiter store shared by every
// server instance through Redis. When Redis fails requests are let through.
type RedisRateStore struct {
	limit  int64
	window time.Duration
	prefix string
	log    logging.Logger

	// incr bumps the counter of key and starts its window on first use.
	// SET NX creates the key with its TTL only when it is missing, so the
	// window never slides.
	incr func(ctx context.Context, key string, window time.Duration) (int64, error)
}

func NewRedisRateStore(client *redis.Client, limit int64, window time.Duration, log logging.Logger) *RedisRateStore {
	return &RedisRateStore{
		limit:  limit,
		window: window,
		prefix: "mediavault:ratelimit:",
		log:    log,
		incr: func(ctx context.Context, key string, window time.Duration) (int64, error) {
			pipe := client.TxPipeline()
			pipe.SetNX(ctx, key, 0, window)
			n := pipe.Incr(ctx, key)
			if _, err := pipe.Exec(ctx); err != nil {
				return 0, err
			}
			return n.Val(), nil
		},
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *RedisRateStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n, err := s.incr(ctx, s.prefix+identifier, s.window)
	if err != nil {
		s.log.Warn(ctx, "rate limiter unavailable", "error", err)
		return true, nil
	}
	return n <= s.limit, nil
}

// newMemoryRateStore is the per-process fallback when Redis is not configured.
func newMemoryRateStore(limit int, window time.Duration) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(limit) / window.Seconds()),
		Burst:     limit,
		ExpiresIn: 3 * window,
	})
}

// rateLimiter limits requests per client IP.
func rateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
		},
	})
}
