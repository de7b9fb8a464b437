package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"pdfconvert/internal/convert"
	u "pdfconvert/internal/utils"
)

// resultCacheKey creates a SHA256-based cache key from the input payloads and
// the requested output format.
func resultCacheKey(payloads [][]byte, format string) string {
	h := sha256.New()
	for _, p := range payloads {
		h.Write(p)
	}
	h.Write([]byte(format))
	return "convcache:" + hex.EncodeToString(h.Sum(nil))
}

// getCachedResult attempts to retrieve a cached conversion result from Redis.
// Cache errors are logged and treated as misses.
func (svc *ConvertService) getCachedResult(c *fiber.Ctx, key string) *convert.Result {
	if svc.Redis == nil || !svc.Config.Cache.ResultCacheEnabled {
		return nil
	}

	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	fields, err := svc.Redis.HGetAll(ctxRedis, key).Result()
	if err != nil && err != redis.Nil {
		u.Warn("Redis read failed", "error", err)
		return nil
	}
	if fields["content_type"] == "" || fields["filename"] == "" || fields["body"] == "" {
		return nil
	}

	u.Info("Conversion cache hit", "key", key)
	return &convert.Result{
		ContentType: fields["content_type"],
		Filename:    fields["filename"],
		Body:        []byte(fields["body"]),
	}
}

// setCachedResult stores a conversion result in Redis with the configured TTL.
func (svc *ConvertService) setCachedResult(c *fiber.Ctx, key string, res *convert.Result) {
	if svc.Redis == nil || !svc.Config.Cache.ResultCacheEnabled {
		return
	}

	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	ttl := svc.Config.Cache.ResultCacheTTL.Std()
	if ttl <= 0 {
		ttl = 1 * time.Minute
	}

	pipe := svc.Redis.TxPipeline()
	pipe.HSet(ctxRedis, key,
		"content_type", res.ContentType,
		"filename", res.Filename,
		"body", res.Body,
	)
	pipe.Expire(ctxRedis, key, ttl)
	if _, err := pipe.Exec(ctxRedis); err != nil {
		u.Warn("Redis write failed", "error", err)
	}
}
