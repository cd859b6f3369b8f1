package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "timeline:1:machine.os%3Alinux:20", Key(1, "machine.os:linux", 20))
	assert.Equal(t, Key(2, "", 10), Key(2, "", 10))
	assert.NotEqual(t, Key(1, "a", 10), Key(2, "a", 10))
	assert.NotEqual(t, Key(1, "a b", 10), Key(1, "a", 10))

	// Query text cannot forge another key's limit segment.
	assert.NotEqual(t, Key(1, "x:5", 10), Key(1, "x", 5))
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "timeline:1::10:lock", lockKey(Key(1, "", 10)))
}

func TestRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// Nothing listens on port 1; every call must fail with an error
	// rather than report a miss.
	r := NewRedisFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
	defer r.Close()

	_, found, err := r.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, found)
	assert.Error(t, r.Set(ctx, "k", []byte("v"), time.Minute))

	_, err = NewRedis(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}
