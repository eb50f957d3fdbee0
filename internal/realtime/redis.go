package realtime

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/config"
)

// NewRedis creates a new Redis client
func NewRedis(cfg config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	log.Info().Str("addr", cfg.RedisAddr).Msg("redis client created")
	return rdb
}

// NotificationChannel is the pub/sub channel carrying a user's notifications.
func NotificationChannel(userID string) string {
	return "notifications:" + userID
}
