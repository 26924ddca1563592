package workflow

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrderConfigLock(t *testing.T, lock OrderConfigLock) {
	ctx := context.Background()
	key := orderConfigOpLockKey(1)

	t.Run("同一个key并发时只有一个拿到锁", func(t *testing.T) {
		entered := make(chan struct{})
		leave := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
				close(entered)
				<-leave
				return nil
			})
			assert.NoError(t, err)
		}()
		<-entered

		err := lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
			t.Error("should not enter locked section")
			return nil
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, LockFailedError))

		// 其他key不受影响
		err = lock.NonBlockingSynchronized(ctx, orderConfigOpLockKey(2), time.Minute, func(ctx context.Context) error {
			return nil
		})
		assert.NoError(t, err)

		close(leave)
		wg.Wait()

		called := false
		err = lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("可重入", func(t *testing.T) {
		depth := 0
		err := lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
			depth++
			return lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
				depth++
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 2, depth)
	})

	t.Run("返回业务错误之后锁被释放", func(t *testing.T) {
		bizErr := errors.New("biz failed")
		err := lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
			return bizErr
		})
		assert.Equal(t, bizErr, err)

		err = lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
			return nil
		})
		assert.NoError(t, err)
	})
}

func TestLocalOrderConfigLock(t *testing.T) {
	lock := NewLocalOrderConfigLock()
	testOrderConfigLock(t, lock)

	t.Run("超时自动释放", func(t *testing.T) {
		ctx := context.Background()
		key := orderConfigOpLockKey(3)
		entered := make(chan struct{})
		leave := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = lock.NonBlockingSynchronized(ctx, key, 20*time.Millisecond, func(ctx context.Context) error {
				close(entered)
				<-leave
				return nil
			})
		}()
		<-entered

		require.Eventually(t, func() bool {
			return lock.NonBlockingSynchronized(ctx, key, time.Minute, func(ctx context.Context) error {
				return nil
			}) == nil
		}, time.Second, 10*time.Millisecond)

		close(leave)
		<-done
	})
}

func TestLocalOrderConfigLock_OrphanedHolder(t *testing.T) {
	lock := NewLocalOrderConfigLock().(*localOrderConfigLock)
	key := orderConfigOpLockKey(4)

	// 已经被release从map里删掉的holder, 锁上之后也不能算拿到锁
	orphan := &localLockHolder{}
	assert.False(t, lock.tryHold(key, orphan))
	assert.True(t, orphan.mu.TryLock(), "orphaned holder must be unlocked again")
	orphan.mu.Unlock()

	current := &localLockHolder{}
	lock.locks.Store(key, current)
	assert.False(t, lock.tryHold(key, orphan))
	assert.True(t, lock.tryHold(key, current))
	assert.False(t, lock.tryHold(key, current))
	current.mu.Unlock()
}

// 需要真实的redis, 设置 ORDERFLOW_TEST_REDIS_ADDR 之后才会执行
func TestRedisOrderConfigLock(t *testing.T) {
	addr := os.Getenv("ORDERFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ORDERFLOW_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	testOrderConfigLock(t, NewRedisOrderConfigLock(client, "orderflow_test_"+time.Now().Format("150405.000")+":"))
}
