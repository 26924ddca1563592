package workflow

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// JSONContext 封装松散的json对象, 用于节点透传字段和配置的 meta
type JSONContext struct {
	data map[string]any
}

// NewJSONContext 从字节创建, 解析失败得到空对象并打warn日志, 需要知道失败原因的用 ParseJSONContext
func NewJSONContext(b []byte) *JSONContext {
	ctx, err := ParseJSONContext(b)
	if err != nil {
		slog.Warn("NewJSONContext failed, use empty object", "err", err)
		return &JSONContext{data: make(map[string]any)}
	}
	return ctx
}

func ParseJSONContext(b []byte) (*JSONContext, error) {
	ctx := &JSONContext{
		data: make(map[string]any),
	}
	if len(b) == 0 {
		return ctx, nil
	}
	if err := json.Unmarshal(b, &ctx.data); err != nil {
		return nil, errors.Wrap(err, "ParseJSONContext failed")
	}
	if ctx.data == nil {
		ctx.data = make(map[string]any)
	}
	return ctx, nil
}

// NewJSONContextFromMap 从 map 创建, 注意不会拷贝
func NewJSONContextFromMap(m map[string]any) *JSONContext {
	if m == nil {
		m = make(map[string]any)
	}
	return &JSONContext{data: m}
}

// Get 获取值，支持嵌套路径
// 例如: Get("logic", "conditions") 获取 logic.conditions
func (c *JSONContext) Get(keys ...string) (any, bool) {
	if c == nil || len(keys) == 0 {
		return nil, false
	}
	current := any(c.data)
	for _, key := range keys {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		val, exists := currentMap[key]
		if !exists {
			return nil, false
		}
		current = val
	}
	return current, true
}

func (c *JSONContext) GetString(keys ...string) (string, bool) {
	val, ok := c.Get(keys...)
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt64 json解出来的是float64, yaml解出来的是int, 都兼容
func (c *JSONContext) GetInt64(keys ...string) (int64, bool) {
	val, ok := c.Get(keys...)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// GetBool 兼容 "true"/"1" 这种字符串写法, 流程编辑器经常存成字符串
func (c *JSONContext) GetBool(keys ...string) (bool, bool) {
	val, ok := c.Get(keys...)
	if !ok {
		return false, false
	}
	switch v := val.(type) {
	case bool:
		return v, true
	case string:
		switch v {
		case "true", "1":
			return true, true
		case "false", "0", "":
			return false, true
		}
	}
	return false, false
}

// GetStringSlice 获取字符串数组, 非字符串元素会被忽略
func (c *JSONContext) GetStringSlice(keys ...string) ([]string, bool) {
	val, ok := c.Get(keys...)
	if !ok {
		return nil, false
	}
	switch v := val.(type) {
	case []string:
		return v, true
	case []any:
		ret := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				ret = append(ret, str)
			}
		}
		return ret, true
	}
	return nil, false
}

// Set 设置值，支持嵌套路径, 中间不是 map 的会被覆盖
func (c *JSONContext) Set(keys []string, value any) error {
	if len(keys) == 0 {
		return fmt.Errorf("keys cannot be empty")
	}
	current := c.data
	for i := 0; i < len(keys)-1; i++ {
		nextMap, ok := current[keys[i]].(map[string]any)
		if !ok {
			nextMap = make(map[string]any)
			current[keys[i]] = nextMap
		}
		current = nextMap
	}
	current[keys[len(keys)-1]] = value
	return nil
}

func (c *JSONContext) Delete(keys ...string) {
	if len(keys) == 0 {
		return
	}
	current := c.data
	for i := 0; i < len(keys)-1; i++ {
		nextMap, ok := current[keys[i]].(map[string]any)
		if !ok {
			return
		}
		current = nextMap
	}
	delete(current, keys[len(keys)-1])
}

func (c *JSONContext) ToBytes() ([]byte, error) {
	return json.Marshal(c.data)
}

// ToMap 返回底层 map（注意：返回的是引用）
func (c *JSONContext) ToMap() map[string]any {
	return c.data
}

// Clone 深拷贝, 只复制 map 和数组, 其他值直接共用
func (c *JSONContext) Clone() *JSONContext {
	if c == nil {
		return NewJSONContext(nil)
	}
	return &JSONContext{data: cloneValue(c.data).(map[string]any)}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		ret := make(map[string]any, len(val))
		for k, item := range val {
			ret[k] = cloneValue(item)
		}
		return ret
	case []any:
		ret := make([]any, len(val))
		for i, item := range val {
			ret[i] = cloneValue(item)
		}
		return ret
	case []string:
		return append([]string{}, val...)
	}
	return v
}

// Unmarshal 反序列化到指定结构体
func (c *JSONContext) Unmarshal(v any) error {
	b, err := c.ToBytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (c *JSONContext) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return c.ToBytes()
}

func (c *JSONContext) UnmarshalJSON(b []byte) error {
	data := make(map[string]any)
	if err := json.Unmarshal(b, &data); err != nil {
		return errors.WithMessage(err, "JSONContext.UnmarshalJSON failed")
	}
	if data == nil {
		data = make(map[string]any)
	}
	c.data = data
	return nil
}
