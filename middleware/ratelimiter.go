package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiter limits requests per client IP over a one-minute window.
// Counters live in Redis when a client is given so replicas share them.
func RateLimiter(perMinute int, rdb *redis.Client) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  int64(perMinute),
	}

	var store limiter.Store = memory.NewStore()
	if rdb != nil {
		s, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit"})
		if err != nil {
			log.Printf("⚠️ Rate limiter redis store unavailable, limits are per instance: %v", err)
		} else {
			store = s
		}
	}

	// 📊 Limiter instance
	instance := limiter.New(store, rate)

	// 🚦 Gin-compatible middleware
	return ginlimiter.NewMiddleware(instance)
}
