package workflow

import "context"

type OrderConfigService interface {
	/**
	 * @description: 创建订单流程配置
	 *				 namespace、key、version、status 在这里生成, 之后不能修改
	 * @param ctx context.Context
	 * @param req *CreateOrderConfigReq
	 * @return *OrderConfig, error
	 */
	CreateOrderConfig(ctx context.Context, req *CreateOrderConfigReq) (*OrderConfig, error)
	/**
	 * @description: 修改订单流程配置, 同一个配置同一时间只能有一个修改
	 *				 其他人正在修改时返回 LockFailedError
	 * @param ctx context.Context
	 * @param req *UpdateOrderConfigReq
	 * @return error
	 */
	UpdateOrderConfig(ctx context.Context, req *UpdateOrderConfigReq) error
	/**
	 * @description: 发布配置, 状态改成published, 同时升级版本号
	 * @param ctx context.Context
	 * @param req *PublishOrderConfigReq
	 *				  req.VersionPart 为空时升级patch
	 * @return *OrderConfig, error
	 */
	PublishOrderConfig(ctx context.Context, req *PublishOrderConfigReq) (*OrderConfig, error)
	/**
	 * @description: 删除配置, 软删除
	 * @param ctx context.Context
	 * @param orderConfigID int64
	 * @return error
	 */
	DeleteOrderConfig(ctx context.Context, orderConfigID int64) error
	/**
	 * @description: 按ID查询配置, 不存在返回 ErrOrderConfigNotFound
	 * @param ctx context.Context
	 * @param orderConfigID int64
	 * @return *OrderConfig, error
	 */
	GetOrderConfig(ctx context.Context, orderConfigID int64) (*OrderConfig, error)
	QueryOrderConfig(ctx context.Context, params *QueryOrderConfigParams) ([]*OrderConfig, error)
	CountOrderConfig(ctx context.Context, params *QueryOrderConfigParams) (int64, error)
	/**
	 * @description: 按订单当前状态计算导航结果(当前、后置、前置、后两步、取消、完成)
	 *				 订单为nil返回 ErrMissingOrderContext
	 *				 订单状态匹配不到节点不是错误, 结果里 Current 为nil
	 * @param ctx context.Context
	 * @param orderConfigID int64
	 * @param order OrderContext
	 * @return *ActivitySnapshot, error
	 */
	ResolveOrderActivities(ctx context.Context, orderConfigID int64, order OrderContext) (*ActivitySnapshot, error)
}

// OrderConfigServiceImpl 订单流程配置服务
type OrderConfigServiceImpl struct {
	repo     OrderConfigRepo
	editLock OrderConfigLock
}

func NewOrderConfigService(repo OrderConfigRepo, editLock OrderConfigLock) OrderConfigService {
	return &OrderConfigServiceImpl{repo: repo, editLock: editLock}
}
