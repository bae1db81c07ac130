package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mealscope/backend/config"
)

// NewRedis connects to Redis. A nil client is returned when Redis is
// unreachable; callers treat that as caching and rate limiting disabled.
func NewRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable at %s, continuing without it: %v", cfg.RedisAddr(), err)
		return nil
	}

	log.Printf("Connected to Redis at %s", cfg.RedisAddr())
	return client
}
