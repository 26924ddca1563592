package workflow

import "fmt"

// FlowGraph 由流程定义构建的节点图
// 构建是一对一、保持顺序的映射, 不去重也不校验, 边在遍历的时候才解析
type FlowGraph struct {
	activities []*GraphActivity
}

// NewFlowGraph 构建流程图, 为nil的定义当成空节点, 保证和定义一一对应
func NewFlowGraph(flow FlowDefinition) *FlowGraph {
	graph := &FlowGraph{
		activities: make([]*GraphActivity, 0, len(flow)),
	}
	for i, def := range flow {
		if def == nil {
			def = &ActivityDefinition{}
		}
		graph.activities = append(graph.activities, newGraphActivity(graph, i, def))
	}
	return graph
}

// Activities 按定义顺序返回所有节点
func (g *FlowGraph) Activities() []*GraphActivity {
	ret := make([]*GraphActivity, len(g.activities))
	copy(ret, g.activities)
	return ret
}

func (g *FlowGraph) Len() int {
	return len(g.activities)
}

func (g *FlowGraph) at(index int) *GraphActivity {
	if index < 0 || index >= len(g.activities) {
		return nil
	}
	return g.activities[index]
}

// FindByCode 按code查找, code重复时取第一个
func (g *FlowGraph) FindByCode(code string) *GraphActivity {
	for _, activity := range g.activities {
		if activity.code == code {
			return activity
		}
	}
	return nil
}

// FindByKey 按key查找, key重复时取第一个
func (g *FlowGraph) FindByKey(key string) *GraphActivity {
	for _, activity := range g.activities {
		if activity.key == key {
			return activity
		}
	}
	return nil
}

type FlowIssueType = string

const (
	FlowIssueDuplicateKey        FlowIssueType = "duplicate_key"
	FlowIssueDuplicateCode       FlowIssueType = "duplicate_code"
	FlowIssueUnresolvedReference FlowIssueType = "unresolved_reference"
)

// FlowIssue 流程定义的数据问题, 只报告不修复
type FlowIssue struct {
	Type        FlowIssueType `json:"type"`
	ActivityKey string        `json:"activity_key"`
	Index       int           `json:"index"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
}

func (i FlowIssue) String() string {
	return fmt.Sprintf("[%s] activity %q (index %d): %s", i.Type, i.ActivityKey, i.Index, i.Message)
}

// Validate 检查key/code重复和 next/previous 引用不存在的code
// 导航的时候这些问题不会报错(重复取第一个, 引用不到的边忽略), 这里给编写流程的人看
func (g *FlowGraph) Validate() []FlowIssue {
	issues := make([]FlowIssue, 0)
	seenKeys := make(map[string]int)
	seenCodes := make(map[string]int)
	for _, activity := range g.activities {
		if first, ok := seenKeys[activity.key]; ok {
			issues = append(issues, FlowIssue{
				Type:        FlowIssueDuplicateKey,
				ActivityKey: activity.key,
				Index:       activity.index,
				Code:        activity.code,
				Message:     fmt.Sprintf("key already used by activity at index %d", first),
			})
		} else {
			seenKeys[activity.key] = activity.index
		}
		if first, ok := seenCodes[activity.code]; ok {
			issues = append(issues, FlowIssue{
				Type:        FlowIssueDuplicateCode,
				ActivityKey: activity.key,
				Index:       activity.index,
				Code:        activity.code,
				Message:     fmt.Sprintf("code already used by activity at index %d, first match wins", first),
			})
		} else {
			seenCodes[activity.code] = activity.index
		}
	}
	for _, activity := range g.activities {
		issues = append(issues, g.unresolved(activity, "next", activity.definition.Next)...)
		issues = append(issues, g.unresolved(activity, "previous", activity.definition.Previous)...)
	}
	return issues
}

func (g *FlowGraph) unresolved(activity *GraphActivity, edge string, codes CodeList) []FlowIssue {
	issues := make([]FlowIssue, 0)
	for _, code := range codes {
		if g.FindByCode(code) != nil {
			continue
		}
		issues = append(issues, FlowIssue{
			Type:        FlowIssueUnresolvedReference,
			ActivityKey: activity.key,
			Index:       activity.index,
			Code:        code,
			Message:     fmt.Sprintf("%s references unknown code %q", edge, code),
		})
	}
	return issues
}
