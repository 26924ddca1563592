package workflow

import (
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
)

// Tenant 租户(公司), 只在生成 namespace 的时候使用
type Tenant struct {
	UUID string `json:"uuid"`
	Name string `json:"name" validate:"required"`
}

// OrderConfig 租户下有名字、有版本的订单流程配置entity
type OrderConfig struct {
	ID          int64
	UUID        string
	CompanyUUID string
	Name        string
	Namespace   string // 创建时生成, 之后不能修改
	Key         string // 创建时生成, 之后不能修改
	Description string
	Status      OrderConfigStatus
	Version     string
	CoreService bool
	Tags        []string
	Flow        FlowDefinition
	Entities    []string // 这个流程适用的实体类型
	Meta        *JSONContext
	CreatedAt   int64
	UpdatedAt   int64

	// 导航会话期间绑定的订单, 不归配置管理
	orderContext OrderContext
}

/**
 * @description: 生成namespace, slug(租户名):order-config:slug(配置名)
 *				 相同输入得到相同结果, 全小写, 用冒号分段
 * @param name string 配置名
 * @param tenant Tenant
 * @return string
 */
func CreateNamespace(name string, tenant Tenant) string {
	return strings.Join([]string{slug.Make(tenant.Name), namespaceSegment, slug.Make(name)}, ":")
}

// CreateKey 配置的key, slug(配置名)
func CreateKey(name string) string {
	return slug.Make(name)
}

/**
 * @description: 创建时的默认值, 只在第一次保存之前调用一次
 *				 namespace、key、version、status 生成之后不再变化
 * @param tenant Tenant
 */
func (c *OrderConfig) ApplyCreationDefaults(tenant Tenant) {
	c.Namespace = CreateNamespace(c.Name, tenant)
	c.Key = CreateKey(c.Name)
	c.Version = InitialOrderConfigVersion
	if c.Status == "" {
		c.Status = OrderConfigStatusPrivate
	}
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
	if c.CompanyUUID == "" {
		c.CompanyUUID = tenant.UUID
	}
	if c.Flow == nil {
		c.Flow = make(FlowDefinition, 0)
	}
	if c.Entities == nil {
		c.Entities = make([]string, 0)
	}
	if c.Tags == nil {
		c.Tags = make([]string, 0)
	}
	if c.Meta == nil {
		c.Meta = NewJSONContext(nil)
	}
	now := time.Now().Unix()
	c.CreatedAt = now
	c.UpdatedAt = now
}

func (c *OrderConfig) IsPublished() bool {
	return c.Status == OrderConfigStatusPublished
}

// AppliesTo 配置是否适用于某个实体类型, 没有声明实体的配置适用于所有实体
func (c *OrderConfig) AppliesTo(entityType string) bool {
	if len(c.Entities) == 0 {
		return true
	}
	return slices.Contains(c.Entities, entityType)
}

type VersionPart = string

const (
	VersionPartPatch VersionPart = "patch"
	VersionPartMinor VersionPart = "minor"
	VersionPartMajor VersionPart = "major"
)

// BumpVersion 升级版本号, part为空时升级patch
func (c *OrderConfig) BumpVersion(part VersionPart) (string, error) {
	current := c.Version
	if current == "" {
		current = InitialOrderConfigVersion
	}
	version, err := semver.NewVersion(current)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidVersion, "BumpVersion failed, version: %s, err: %v", current, err)
	}
	var next semver.Version
	switch part {
	case "", VersionPartPatch:
		next = version.IncPatch()
	case VersionPartMinor:
		next = version.IncMinor()
	case VersionPartMajor:
		next = version.IncMajor()
	default:
		return "", errors.Wrapf(ErrInvalidVersion, "BumpVersion failed, unknown version part: %s", part)
	}
	c.Version = next.String()
	return c.Version, nil
}

// SetOrderContext 绑定订单, 可以被后面的调用替换
func (c *OrderConfig) SetOrderContext(order OrderContext) *OrderConfig {
	c.orderContext = order
	return c
}

/**
 * @description: 获取订单上下文, 传入的订单优先, 其次是绑定的订单
 *				 两者都没有返回 ErrMissingOrderContext, 不会默认
 * @param order OrderContext 可以为nil
 * @return OrderContext, error
 */
func (c *OrderConfig) GetOrderContext(order OrderContext) (OrderContext, error) {
	if !isNilOrder(order) {
		return order, nil
	}
	if !isNilOrder(c.orderContext) {
		return c.orderContext, nil
	}
	return nil, errors.WithMessagef(ErrMissingOrderContext, "order config: %s", c.Namespace)
}

// Activities 每次都从 Flow 重新构建, 不缓存
func (c *OrderConfig) Activities() []*GraphActivity {
	return c.Graph().Activities()
}

func (c *OrderConfig) Graph() *FlowGraph {
	return NewFlowGraph(c.Flow)
}

// Navigator 基于当前 Flow 的导航器
func (c *OrderConfig) Navigator() *Navigator {
	return NewNavigator(c.Graph())
}

func (c *OrderConfig) CurrentActivity(order OrderContext) (*GraphActivity, error) {
	order, err := c.GetOrderContext(order)
	if err != nil {
		return nil, errors.WithMessage(err, "CurrentActivity failed")
	}
	return c.Navigator().CurrentActivity(order), nil
}

func (c *OrderConfig) NextActivity(order OrderContext) ([]*GraphActivity, error) {
	order, err := c.GetOrderContext(order)
	if err != nil {
		return nil, errors.WithMessage(err, "NextActivity failed")
	}
	return c.Navigator().NextActivity(order), nil
}

func (c *OrderConfig) NextFirstActivity(order OrderContext) (*GraphActivity, error) {
	order, err := c.GetOrderContext(order)
	if err != nil {
		return nil, errors.WithMessage(err, "NextFirstActivity failed")
	}
	return c.Navigator().NextFirstActivity(order), nil
}

func (c *OrderConfig) AfterNextActivity(order OrderContext) (*GraphActivity, error) {
	order, err := c.GetOrderContext(order)
	if err != nil {
		return nil, errors.WithMessage(err, "AfterNextActivity failed")
	}
	return c.Navigator().AfterNextActivity(order), nil
}

func (c *OrderConfig) PreviousActivity(order OrderContext) ([]*GraphActivity, error) {
	order, err := c.GetOrderContext(order)
	if err != nil {
		return nil, errors.WithMessage(err, "PreviousActivity failed")
	}
	return c.Navigator().PreviousActivity(order), nil
}

// Snapshot 所有导航结果
func (c *OrderConfig) Snapshot(order OrderContext) (*ActivitySnapshot, error) {
	order, err := c.GetOrderContext(order)
	if err != nil {
		return nil, errors.WithMessage(err, "Snapshot failed")
	}
	return c.Navigator().Snapshot(order), nil
}

func (c *OrderConfig) CreatedActivity() *GraphActivity {
	return c.Navigator().CreatedActivity()
}

func (c *OrderConfig) DispatchActivity() *GraphActivity {
	return c.Navigator().DispatchActivity()
}

func (c *OrderConfig) CanceledActivity() *SynthesizedActivity {
	return c.Navigator().CanceledActivity()
}

func (c *OrderConfig) CompletedActivity() *SynthesizedActivity {
	return c.Navigator().CompletedActivity()
}
