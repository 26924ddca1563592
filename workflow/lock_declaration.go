package workflow

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var (
	LockFailedError = errors.New("lock failed")
)

type lockKey string

// OrderConfigLock 配置编辑锁, 同一个配置同一时间只允许一个编辑者修改
type OrderConfigLock interface {
	// NonBlockingSynchronized
	//  @Description:  1.非阻塞同步块,如果没有拿到锁，立刻返回错误
	//                 2.可以重入锁, 持有锁的ctx再次进入直接执行
	//  @param ctx 原来的ctx
	//  @param key 锁的key
	//  @param maxLockTimeDuration 锁最大的时间, 超过之后自动释放
	//  @param f 具体执行函数的闭包
	//  @return error
	NonBlockingSynchronized(ctx context.Context, key string, maxLockTimeDuration time.Duration, f func(context.Context) error) error
}

func orderConfigOpLockKey(orderConfigID int64) string {
	return "order_config_op_" + strconv.FormatInt(orderConfigID, 10)
}
