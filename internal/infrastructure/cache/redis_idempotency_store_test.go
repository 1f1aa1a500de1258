package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisIdempotencyStoreWithClient_DefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	store := NewRedisIdempotencyStoreWithClient(client, "")
	assert.Equal(t, "request:idempotency:", store.keyPrefix)

	custom := NewRedisIdempotencyStoreWithClient(client, "khata:idem:")
	assert.Equal(t, "khata:idem:", custom.keyPrefix)
}

func TestRedisIdempotencyStore_UnreachableServerReturnsError(t *testing.T) {
	// Port 1 is never a Redis server; both operations must surface the
	// connection error instead of panicking.
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	store := NewRedisIdempotencyStoreWithClient(client, "")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := store.MarkProcessed(ctx, "payment-123", time.Minute)
	assert.Error(t, err)

	_, err = store.IsProcessed(ctx, "payment-123")
	assert.Error(t, err)
}
