package lib

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// GetRedisClient returns the shared client for REDIS_HOST, or nil when no
// redis is configured.
func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	redisClient = redis.NewClient(opt)
	return redisClient
}

// PingRedis reports whether the client answers within timeout.
func PingRedis(c *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[redis] Ping failed: %s\n", err.Error())
		return err
	}
	return nil
}
