package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// Store is the narrow cache surface consumed by services. Implementations
// must treat a missing key as an error (redis.Nil semantics).
type Store interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
	Delete(key string) error
}

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// redisStore adapts the package-level client to the Store interface
type redisStore struct{}

// NewStore returns a Store backed by the shared Redis client
func NewStore() Store {
	return redisStore{}
}

func (redisStore) Get(key string) (string, error) {
	return Get(key)
}

func (redisStore) Set(key string, value interface{}, expiration time.Duration) error {
	return Set(key, value, expiration)
}

func (redisStore) Delete(key string) error {
	return Delete(key)
}
