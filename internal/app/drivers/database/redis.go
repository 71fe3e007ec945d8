package database

import (
	"context"
	"fmt"
	"time"

	"consent-service/internal/app/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient returns nil when Redis is disabled in the driver config.
func NewRedisClient(driverConfig *config.DriverConfig, log *zap.Logger) *redis.Client {
	if !driverConfig.Redis.Enabled {
		log.Info("Redis disabled, SatuSehat token cache is off")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", driverConfig.Redis.Host, driverConfig.Redis.Port),
		Password: driverConfig.Redis.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		log.Fatal("Could not connect to Redis", zap.Error(err))
	}

	log.Info("Successfully connected to Redis", zap.String("addr", rdb.Options().Addr))
	return rdb
}
