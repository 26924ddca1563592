package workflow

// Navigator 根据订单当前状态在流程图上做导航
// 所有方法都要求显式传入订单, 没有隐藏状态, 可以并发使用
// 找不到节点都不是错误, 返回nil或者空数组
type Navigator struct {
	graph *FlowGraph
}

func NewNavigator(graph *FlowGraph) *Navigator {
	if graph == nil {
		graph = NewFlowGraph(nil)
	}
	return &Navigator{graph: graph}
}

// Graph 导航使用的流程图
func (n *Navigator) Graph() *FlowGraph {
	return n.graph
}

// CurrentActivity code等于订单状态的节点, 没有则返回nil
func (n *Navigator) CurrentActivity(order OrderContext) *GraphActivity {
	if isNilOrder(order) {
		return nil
	}
	return n.graph.FindByCode(order.GetStatus())
}

// NextActivity 当前节点的后置节点
func (n *Navigator) NextActivity(order OrderContext) []*GraphActivity {
	current := n.CurrentActivity(order)
	if current == nil {
		return []*GraphActivity{}
	}
	return current.Next(order)
}

// NextFirstActivity 第一个后置节点
func (n *Navigator) NextFirstActivity(order OrderContext) *GraphActivity {
	return first(n.NextActivity(order))
}

// AfterNextActivity 往后看两步, 任何一步没有都返回nil
func (n *Navigator) AfterNextActivity(order OrderContext) *GraphActivity {
	next := n.NextFirstActivity(order)
	if next == nil {
		return nil
	}
	return first(next.Next(order))
}

// PreviousActivity 当前节点的前置节点
func (n *Navigator) PreviousActivity(order OrderContext) []*GraphActivity {
	current := n.CurrentActivity(order)
	if current == nil {
		return []*GraphActivity{}
	}
	return current.Previous(order)
}

func (n *Navigator) CreatedActivity() *GraphActivity {
	return n.graph.FindByCode(ActivityCodeCreated)
}

func (n *Navigator) DispatchActivity() *GraphActivity {
	return n.graph.FindByCode(ActivityCodeDispatched)
}

// CanceledActivity 合成的取消节点, 不从流程图查找
func (n *Navigator) CanceledActivity() *SynthesizedActivity {
	return NewCanceledActivity()
}

// CompletedActivity 合成的完成节点, 不从流程图查找
func (n *Navigator) CompletedActivity() *SynthesizedActivity {
	return NewCompletedActivity()
}

// ActivitySnapshot 一次性算好的导航结果, 给订单流转逻辑使用
type ActivitySnapshot struct {
	OrderStatus string
	Current     *GraphActivity
	Next        []*GraphActivity
	NextFirst   *GraphActivity
	AfterNext   *GraphActivity
	Previous    []*GraphActivity
	Canceled    *SynthesizedActivity
	Completed   *SynthesizedActivity
}

// HasCurrent 订单状态是否匹配到了流程中的节点
// 没有匹配和匹配了但是没有后置节点, 只能通过这个区分
func (s *ActivitySnapshot) HasCurrent() bool {
	return s != nil && s.Current != nil
}

func (n *Navigator) Snapshot(order OrderContext) *ActivitySnapshot {
	snapshot := &ActivitySnapshot{
		Current:   n.CurrentActivity(order),
		Next:      n.NextActivity(order),
		NextFirst: n.NextFirstActivity(order),
		AfterNext: n.AfterNextActivity(order),
		Previous:  n.PreviousActivity(order),
		Canceled:  n.CanceledActivity(),
		Completed: n.CompletedActivity(),
	}
	if !isNilOrder(order) {
		snapshot.OrderStatus = order.GetStatus()
	}
	return snapshot
}

func first(activities []*GraphActivity) *GraphActivity {
	if len(activities) == 0 {
		return nil
	}
	return activities[0]
}
