package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NewLocalOrderConfigLock 单进程部署使用
func NewLocalOrderConfigLock() OrderConfigLock {
	return &localOrderConfigLock{
		locks: &sync.Map{},
	}
}

type localOrderConfigLock struct {
	locks     *sync.Map // key -> *localLockHolder
	releaseMu sync.Mutex
}

type localLockHolder struct {
	mu    sync.Mutex
	token string
	timer *time.Timer
}

func (l *localOrderConfigLock) NonBlockingSynchronized(ctx context.Context, key string, maxLockTimeDuration time.Duration, f func(context.Context) error) error {
	if _, ok := ctx.Value(lockKey(key)).(string); ok {
		// 已经持有锁，可重入
		return f(ctx)
	}

	holderInterface, _ := l.locks.LoadOrStore(key, &localLockHolder{})
	holder := holderInterface.(*localLockHolder)
	if !l.tryHold(key, holder) {
		return errors.WithMessagef(LockFailedError, "[localOrderConfigLock.NonBlockingSynchronized] key: %s has been locked", key)
	}

	token := uuid.NewString()
	holder.token = token
	holder.timer = time.AfterFunc(maxLockTimeDuration, func() {
		l.release(key, holder, token)
	})
	defer l.release(key, holder, token)

	return f(context.WithValue(ctx, lockKey(key), token))
}

// tryHold 拿到的holder可能刚被release从map里删掉, 这时候别人可能已经锁住了新的holder
func (l *localOrderConfigLock) tryHold(key string, holder *localLockHolder) bool {
	if !holder.mu.TryLock() {
		return false
	}
	if current, ok := l.locks.Load(key); !ok || current != holder {
		holder.mu.Unlock()
		return false
	}
	return true
}

// release 超时和正常结束都会调用, 只有token一致的那一次真正解锁
func (l *localOrderConfigLock) release(key string, holder *localLockHolder, token string) {
	l.releaseMu.Lock()
	defer l.releaseMu.Unlock()
	current, ok := l.locks.Load(key)
	if !ok || current != holder {
		return
	}
	if holder.token != token {
		slog.Warn("[localOrderConfigLock.release] token mismatch", "key", key)
		return
	}
	holder.token = ""
	if holder.timer != nil {
		holder.timer.Stop()
	}
	l.locks.Delete(key)
	holder.mu.Unlock()
}
