package locker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate Redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLocker(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	l := NewRedisLocker(client, RedisOptions{
		Prefix: "test:lock:",
		TTL:    5 * time.Second,
		Wait:   100 * time.Millisecond,
		Retry:  10 * time.Millisecond,
	})
	require.NoError(t, l.Ping(ctx))

	release, err := l.Lock(ctx, DocumentKey(7))
	require.NoError(t, err)

	_, err = l.Lock(ctx, DocumentKey(7))
	assert.True(t, errors.Is(err, ErrLockTimeout))

	release()

	exists, err := client.Exists(ctx, "test:lock:"+DocumentKey(7)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	again, err := l.Lock(ctx, DocumentKey(7))
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	l := NewRedisLocker(client, RedisOptions{Prefix: "test:lock:", TTL: 50 * time.Millisecond})
	release, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	// Lock expires and another holder takes it over.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, client.Set(ctx, "test:lock:k", "someone-else", time.Minute).Err())

	release()

	val, err := client.Get(ctx, "test:lock:k").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

// countingHook short-circuits every command and counts it
type countingHook struct {
	calls atomic.Int32
}

func (h *countingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *countingHook) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.calls.Add(1)
		return nil
	}
}

func (h *countingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisLocker_ConcurrentReleaseRunsOnce(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { client.Close() })
	hook := &countingHook{}
	client.AddHook(hook)

	l := NewRedisLocker(client, RedisOptions{Prefix: "test:lock:"})
	release := l.releaser("test:lock:k", "token")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release()
		}()
	}
	wg.Wait()
	release()

	assert.Equal(t, int32(1), hook.calls.Load())
}
