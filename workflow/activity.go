package workflow

import (
	"log/slog"
	"reflect"
)

// OrderContext 订单上下文, 导航只关心订单当前的状态code
type OrderContext interface {
	GetStatus() string
}

// EntityOrderContext 带有实体列表的订单, 预留给以后按实体做条件分支
type EntityOrderContext interface {
	OrderContext
	GetEntities() []string
}

// isNilOrder 接口里面包着的nil指针也当成没有传订单
func isNilOrder(order OrderContext) bool {
	if order == nil {
		return true
	}
	v := reflect.ValueOf(order)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Order 订单上下文的简单实现, 持久化层可以直接用自己的订单结构实现 OrderContext
type Order struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Entities []string `json:"entities"`
}

func (o *Order) GetStatus() string {
	if o == nil {
		return ""
	}
	return o.Status
}

func (o *Order) GetEntities() []string {
	if o == nil {
		return nil
	}
	return o.Entities
}

// Activity 流程中的一个节点, 流程内的节点和合成的终止节点都实现这个接口, 调用方统一处理
type Activity interface {
	Key() string
	Code() string
	Status() string
	Details() string
	// Options 透传字段, 只读
	Options() *JSONContext
	Is(code string) bool
	IsSynthesized() bool
	RequiresProofOfDelivery() bool
	PodMethod() string
	IsComplete() bool
}

// baseActivity 节点字段的只读视图
type baseActivity struct {
	key     string
	code    string
	status  string
	details string
	options map[string]any
}

func (a *baseActivity) Key() string     { return a.key }
func (a *baseActivity) Code() string    { return a.code }
func (a *baseActivity) Status() string  { return a.status }
func (a *baseActivity) Details() string { return a.details }

// Options 每次返回一份拷贝, 修改不会影响节点
func (a *baseActivity) Options() *JSONContext {
	return NewJSONContextFromMap(a.options).Clone()
}

func (a *baseActivity) Is(code string) bool {
	return a.code == code
}

func (a *baseActivity) RequiresProofOfDelivery() bool {
	requirePod, _ := NewJSONContextFromMap(a.options).GetBool(ActivityOptionKeyRequirePod)
	return requirePod
}

func (a *baseActivity) PodMethod() string {
	podMethod, _ := NewJSONContextFromMap(a.options).GetString(ActivityOptionKeyPodMethod)
	return podMethod
}

func (a *baseActivity) IsComplete() bool {
	complete, _ := NewJSONContextFromMap(a.options).GetBool(ActivityOptionKeyComplete)
	return complete
}

// GraphActivity 流程定义中的节点, 持有所属的流程图, 相邻节点在查询时才解析
type GraphActivity struct {
	baseActivity
	index      int
	definition *ActivityDefinition
	graph      *FlowGraph
}

func newGraphActivity(graph *FlowGraph, index int, definition *ActivityDefinition) *GraphActivity {
	return &GraphActivity{
		baseActivity: baseActivity{
			key:     definition.Key,
			code:    definition.Code,
			status:  definition.Status,
			details: definition.Details,
			options: definition.Options,
		},
		index:      index,
		definition: definition,
		graph:      graph,
	}
}

func (a *GraphActivity) IsSynthesized() bool { return false }

// Index 在流程定义中的位置
func (a *GraphActivity) Index() int { return a.index }

// Definition 节点定义的拷贝, 修改拷贝不会影响流程图
func (a *GraphActivity) Definition() *ActivityDefinition { return a.definition.clone() }

/**
 * @description: 获取后置节点
 *				 声明了next就按声明的code顺序解析, 可以有多个(分支);
 *				 没有声明就是定义顺序中的下一个节点
 *				 解析不到的code会被跳过并打warn日志, 不会影响其他的边
 * @param order OrderContext 预留给条件分支使用, 目前不参与解析
 * @return []*GraphActivity
 */
func (a *GraphActivity) Next(order OrderContext) []*GraphActivity {
	if a.definition.Next.IsDeclared() {
		return a.resolve(a.definition.Next, "next")
	}
	if sibling := a.graph.at(a.index + 1); sibling != nil {
		return []*GraphActivity{sibling}
	}
	return []*GraphActivity{}
}

/**
 * @description: 获取前置节点, 规则和 Next 对称
 * @param order OrderContext 预留给条件分支使用, 目前不参与解析
 * @return []*GraphActivity
 */
func (a *GraphActivity) Previous(order OrderContext) []*GraphActivity {
	if a.definition.Previous.IsDeclared() {
		return a.resolve(a.definition.Previous, "previous")
	}
	if sibling := a.graph.at(a.index - 1); sibling != nil {
		return []*GraphActivity{sibling}
	}
	return []*GraphActivity{}
}

func (a *GraphActivity) resolve(codes CodeList, edge string) []*GraphActivity {
	ret := make([]*GraphActivity, 0, len(codes))
	for _, code := range codes {
		target := a.graph.FindByCode(code)
		if target == nil {
			slog.Warn("unresolved activity reference", "activity_key", a.key, "edge", edge, "code", code)
			continue
		}
		ret = append(ret, target)
	}
	return ret
}

// SynthesizedActivity 不在流程定义里的固定节点, 没有相邻节点
type SynthesizedActivity struct {
	baseActivity
}

func newSynthesizedActivity(key, code, status, details string) *SynthesizedActivity {
	return &SynthesizedActivity{
		baseActivity: baseActivity{
			key:     key,
			code:    code,
			status:  status,
			details: details,
			options: map[string]any{},
		},
	}
}

func (a *SynthesizedActivity) IsSynthesized() bool { return true }

// NewCanceledActivity 取消节点, 和流程内容无关
func NewCanceledActivity() *SynthesizedActivity {
	return newSynthesizedActivity(canceledActivityKey, ActivityCodeCanceled, canceledActivityStatus, canceledActivityDetails)
}

// NewCompletedActivity 完成节点, 和流程内容无关
func NewCompletedActivity() *SynthesizedActivity {
	act := newSynthesizedActivity(completedActivityKey, ActivityCodeCompleted, completedActivityStatus, completedActivityDetails)
	act.options[ActivityOptionKeyComplete] = true
	return act
}
