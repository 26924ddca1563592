package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CodeList 节点的 next/previous 声明, 存储里面可以是单个字符串也可以是字符串数组,
// 解码时统一归一成数组
// nil 表示没有声明(按照定义顺序默认相邻), 非nil的空数组表示显式声明没有相邻节点
type CodeList []string

func (l *CodeList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		*l = normalizeCodes([]string{single})
		return nil
	}
	var many []string
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return errors.WithMessagef(ErrInvalidFlowDefinition, "codes must be string or string list, got: %s", string(trimmed))
	}
	*l = normalizeCodes(many)
	return nil
}

func (l *CodeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.ShortTag() == "!!null" {
			return nil
		}
		*l = normalizeCodes([]string{value.Value})
		return nil
	case yaml.SequenceNode:
		many := make([]string, 0, len(value.Content))
		if err := value.Decode(&many); err != nil {
			return errors.WithMessagef(ErrInvalidFlowDefinition, "codes must be string list, line: %d, err: %v", value.Line, err)
		}
		*l = normalizeCodes(many)
		return nil
	}
	return errors.WithMessagef(ErrInvalidFlowDefinition, "codes must be string or string list, line: %d", value.Line)
}

func normalizeCodes(codes []string) CodeList {
	ret := make(CodeList, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		ret = append(ret, code)
	}
	return ret
}

// IsDeclared 是否显式声明过
func (l CodeList) IsDeclared() bool {
	return l != nil
}

var reservedActivityFields = map[string]struct{}{
	"key":      {},
	"code":     {},
	"status":   {},
	"details":  {},
	"next":     {},
	"previous": {},
}

// ActivityDefinition 流程定义中的一个节点配置
type ActivityDefinition struct {
	Key      string   `json:"key" yaml:"key" validate:"required"`   // 节点唯一标识, 例如 order_created
	Code     string   `json:"code" yaml:"code" validate:"required"` // 和订单状态匹配的code, 例如 created
	Status   string   `json:"status" yaml:"status"`                 // 展示用的状态文案
	Details  string   `json:"details" yaml:"details"`               // 描述
	Next     CodeList `json:"next" yaml:"next"`                     // 后置节点code列表
	Previous CodeList `json:"previous" yaml:"previous"`             // 前置节点code列表
	// 其他字段原样透传, 比如 require_pod、pod_method、complete
	Options map[string]any `json:"-" yaml:"-" validate:"-"`
}

type activityDefinitionAlias ActivityDefinition

func (d *ActivityDefinition) UnmarshalJSON(b []byte) error {
	alias := activityDefinitionAlias{}
	if err := json.Unmarshal(b, &alias); err != nil {
		return errors.WithMessage(err, "unmarshal activity definition failed")
	}
	raw := make(map[string]any)
	if err := json.Unmarshal(b, &raw); err != nil {
		return errors.WithMessage(err, "unmarshal activity definition options failed")
	}
	*d = ActivityDefinition(alias)
	d.Options = extractOptions(raw)
	return nil
}

func (d ActivityDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.toMap())
}

func (d *ActivityDefinition) UnmarshalYAML(value *yaml.Node) error {
	alias := activityDefinitionAlias{}
	if err := value.Decode(&alias); err != nil {
		return errors.WithMessagef(err, "decode activity definition failed, line: %d", value.Line)
	}
	raw := make(map[string]any)
	if err := value.Decode(&raw); err != nil {
		return errors.WithMessagef(err, "decode activity definition options failed, line: %d", value.Line)
	}
	*d = ActivityDefinition(alias)
	d.Options = extractOptions(raw)
	for k, v := range d.Options {
		d.Options[k] = normalizeYAMLValue(v)
	}
	return nil
}

// normalizeYAMLValue yaml里面非字符串key的map会解成 map[any]any, 转成json能存的 map[string]any
func normalizeYAMLValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		ret := make(map[string]any, len(val))
		for k, item := range val {
			ret[fmt.Sprint(k)] = normalizeYAMLValue(item)
		}
		return ret
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAMLValue(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeYAMLValue(item)
		}
		return val
	}
	return v
}

func (d ActivityDefinition) MarshalYAML() (any, error) {
	return d.toMap(), nil
}

func extractOptions(raw map[string]any) map[string]any {
	options := make(map[string]any)
	for k, v := range raw {
		if _, ok := reservedActivityFields[k]; ok {
			continue
		}
		options[k] = v
	}
	return options
}

func (d *ActivityDefinition) clone() *ActivityDefinition {
	ret := *d
	if d.Next != nil {
		ret.Next = append(CodeList{}, d.Next...)
	}
	if d.Previous != nil {
		ret.Previous = append(CodeList{}, d.Previous...)
	}
	if d.Options != nil {
		ret.Options = cloneValue(d.Options).(map[string]any)
	}
	return &ret
}

// toMap 合并透传字段, 保证存储之后再读出来是一样的
func (d ActivityDefinition) toMap() map[string]any {
	ret := make(map[string]any, len(d.Options)+6)
	for k, v := range d.Options {
		ret[k] = v
	}
	ret["key"] = d.Key
	ret["code"] = d.Code
	if d.Status != "" {
		ret["status"] = d.Status
	}
	if d.Details != "" {
		ret["details"] = d.Details
	}
	if d.Next.IsDeclared() {
		ret["next"] = []string(d.Next)
	}
	if d.Previous.IsDeclared() {
		ret["previous"] = []string(d.Previous)
	}
	return ret
}

// FlowDefinition 有序的节点定义列表, 顺序就是默认的相邻关系
type FlowDefinition []*ActivityDefinition

// ParseFlowDefinition 从json解析流程定义
func ParseFlowDefinition(b []byte) (FlowDefinition, error) {
	flow := make(FlowDefinition, 0)
	if len(bytes.TrimSpace(b)) == 0 {
		return flow, nil
	}
	if err := json.Unmarshal(b, &flow); err != nil {
		return nil, errors.Wrapf(ErrInvalidFlowDefinition, "ParseFlowDefinition failed, err: %v", err)
	}
	if flow == nil {
		// json null
		flow = make(FlowDefinition, 0)
	}
	return flow, nil
}

// ParseFlowDefinitionYAML 从yaml解析流程定义, 给流程编写者使用
func ParseFlowDefinitionYAML(b []byte) (FlowDefinition, error) {
	flow := make(FlowDefinition, 0)
	if err := yaml.Unmarshal(b, &flow); err != nil {
		return nil, errors.Wrapf(ErrInvalidFlowDefinition, "ParseFlowDefinitionYAML failed, err: %v", err)
	}
	if flow == nil {
		flow = make(FlowDefinition, 0)
	}
	return flow, nil
}

// ToBytes 转换成存储用的json
func (f FlowDefinition) ToBytes() ([]byte, error) {
	if f == nil {
		f = make(FlowDefinition, 0)
	}
	return json.Marshal(f)
}

// Validate 只检查每个节点的必填字段, 边是否存在由 FlowGraph.Validate 报告
func (f FlowDefinition) Validate() error {
	for i, def := range f {
		if def == nil {
			return errors.WithMessagef(ErrInvalidFlowDefinition, "activity at index %d is nil", i)
		}
		if err := validatorUtil.Struct(def); err != nil {
			return errors.WithMessagef(ErrInvalidFlowDefinition, "activity at index %d invalid, err: %v", i, err)
		}
	}
	return nil
}
