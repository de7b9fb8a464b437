package app

import (
	"crypto/sha256"
	"encoding/hex"

	u "pdfconvert/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"
)

var rateLimitStore fiber.Storage

// userRateLimitMiddleware limits requests based on client information when enabled.
func userRateLimitMiddleware(cfg u.Config) fiber.Handler {
	if cfg.RateLimiter.UserLimit <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	hcfg := limiter.Config{
		Max:               cfg.RateLimiter.UserLimit,
		Expiration:        cfg.RateLimiter.Interval.Std(),
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           rateLimitStore,
		KeyGenerator: func(c *fiber.Ctx) string {
			sum := sha256.Sum256([]byte(c.IP() + c.Get("User-Agent")))
			return hex.EncodeToString(sum[:])
		},
		LimitReached: func(c *fiber.Ctx) error {
			u.Warn("Rate limit exceeded", "ip", c.IP(), "path", c.Path())
			return fiber.NewError(fiber.StatusTooManyRequests, "Too Many Requests")
		},
	}
	return limiter.New(hcfg)
}

// RegisterMiddleware attaches global middleware to the app
func RegisterMiddleware(app *fiber.App, cfg u.Config) {
	rateLimitStore = memoryStorage.New() // safe default

	if cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0 {
		func() {
			defer func() {
				if r := recover(); r != nil {
					u.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
				}
			}()
			rateLimitStore = redisStorage.New(redisStorage.Config{
				Addrs:    []string{cfg.Cache.RedisHost},
				Database: cfg.Cache.RateLimitDB,
			})
			u.Info("Using Redis for rate limiting", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.RateLimitDB)
		}()

		app.Use(userRateLimitMiddleware(cfg))
	}

	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New())

	app.Use(func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = c.GetRespHeader("X-Request-ID")
		}
		u.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)
		return c.Next()
	})
}
