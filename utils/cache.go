package utils

import (
	"context"
	"log"
	"time"

	"flai/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient holds the per-user booking sessions.
	SessionCacheClient *redis.Client
	// SettlementCacheClient holds settlement attempts and the address index counter.
	SettlementCacheClient *redis.Client
)

// InitSessionCache initializes the Redis client backing the session store.
func InitSessionCache() {
	SessionCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := SessionCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Sessions): %v", err)
	}
}

// GetSessionCacheClient returns the session store client.
func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitSessionCache()
	}
	return SessionCacheClient
}

// InitSettlementCache initializes the Redis client for settlement tracking.
func InitSettlementCache() {
	SettlementCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSettlementDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := SettlementCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Settlement): %v", err)
	}
}

// GetSettlementCacheClient returns the settlement tracking client.
func GetSettlementCacheClient() *redis.Client {
	if SettlementCacheClient == nil {
		InitSettlementCache()
	}
	return SettlementCacheClient
}
