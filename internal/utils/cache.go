package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"fmt"           // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

const (
	TransactionsKey  = "transactions:all" // Full history, newest first
	TransactionsTTL  = 30 * time.Second   // Statuses move fast, keep the list short-lived
	userTransactions = "transactions:phone:%s"
)

// TransactionsPageKey names one page of the paginated history
func TransactionsPageKey(page, size int) string {
	return fmt.Sprintf("transactions:page:%d:%d", page, size)
}

// UserTransactionsKey names the history of one phone number
func UserTransactionsKey(phone string) string {
	return fmt.Sprintf(userTransactions, phone)
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client is a permanent miss.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// InvalidateTransactions drops every cached history view after a write
func InvalidateTransactions(ctx context.Context, rdb *redis.Client, phone string) error {
	if rdb == nil {
		return nil
	}
	keys := []string{TransactionsKey, UserTransactionsKey(phone)}
	iter := rdb.Scan(ctx, 0, "transactions:page:*", 100).Iterator() // Pages shift when a row is added
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return DeleteCache(ctx, rdb, keys...)
}
