package workflow

import "github.com/pkg/errors"

var (
	ErrOrderConfigNotFound     = errors.New("order config not found")
	ErrOrderConfigParamInvalid = errors.New("order config param invalid")
	ErrInvalidFlowDefinition   = errors.New("invalid flow definition")
	ErrInvalidVersion          = errors.New("invalid order config version")
	// ErrMissingOrderContext: 导航查询时既没有绑定订单上下文，也没有传入订单
	// 没有订单状态就无法定位当前节点，所以这是唯一一个硬错误
	ErrMissingOrderContext = errors.New("missing order context")
)

// 众所周知的节点code
const (
	ActivityCodeCreated    = "created"
	ActivityCodeDispatched = "dispatched"
	ActivityCodeCanceled   = "canceled"
	ActivityCodeCompleted  = "completed"
)

// 合成节点, 不在流程定义里面，任何流程都可以强制结束到这两个状态
const (
	canceledActivityKey     = "order_canceled"
	canceledActivityStatus  = "Order canceled"
	canceledActivityDetails = "Order was canceled"

	completedActivityKey     = "order_completed"
	completedActivityStatus  = "Order completed"
	completedActivityDetails = "Order was completed"
)

type OrderConfigStatus = string

const (
	// 私有, 新建的配置默认状态, 只有作者所在租户可见
	OrderConfigStatusPrivate OrderConfigStatus = "private"
	// 已发布
	OrderConfigStatusPublished OrderConfigStatus = "published"
)

// InitialOrderConfigVersion 新建配置的初始版本
const InitialOrderConfigVersion = "0.0.1"

const namespaceSegment = "order-config"

func GetOrderConfigStatusText(status OrderConfigStatus) string {
	switch status {
	case OrderConfigStatusPrivate:
		return "私有"
	case OrderConfigStatusPublished:
		return "已发布"
	}
	return "未知"
}

// ActivityOptionKey 节点透传字段的key, 通过 Activity.Options() 读取
type ActivityOptionKey = string

const (
	ActivityOptionKeyRequirePod ActivityOptionKey = "require_pod"
	ActivityOptionKeyPodMethod  ActivityOptionKey = "pod_method"
	// complete 为true的节点到达后订单即视为完成
	ActivityOptionKeyComplete ActivityOptionKey = "complete"
)

// IsSeriousError 用于判断是否是严重错误，如果是严重错误，则打error级别日志，
// 否则打warn级别日志
// 严重错误定义：需要人工介入处理处理，
// 1. 配置数据有问题，比如流程定义不合法、版本号不合法
// 2. 调用方没有提供订单上下文，属于代码问题
func IsSeriousError(err error) bool {
	if err == nil {
		// 空error不算严重错误
		return false
	}
	causeErr := errors.Cause(err)
	if errors.Is(causeErr, ErrInvalidFlowDefinition) ||
		errors.Is(causeErr, ErrInvalidVersion) ||
		errors.Is(causeErr, ErrMissingOrderContext) {
		return true
	}
	return false
}
