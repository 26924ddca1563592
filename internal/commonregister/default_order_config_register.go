package commonregister

import (
	"context"

	"github.com/blingmoon/order-workflow/workflow"
	"github.com/pkg/errors"
)

const DefaultOrderConfigName = "Default Delivery"

/**
 * @description: 给租户注册默认的配送流程, 已经存在(同一个namespace)就直接返回
 *				 流程结构: 创建 -> 派单 -> 配送中 -> 完成, 派单之后可以直接转成门店自提
 * @param ctx context.Context
 * @param service workflow.OrderConfigService
 * @param tenant workflow.Tenant
 * @return *workflow.OrderConfig, error
 */
func RegisterDefaultOrderConfig(ctx context.Context, service workflow.OrderConfigService, tenant workflow.Tenant) (*workflow.OrderConfig, error) {
	namespace := workflow.CreateNamespace(DefaultOrderConfigName, tenant)
	exists, err := service.QueryOrderConfig(ctx, &workflow.QueryOrderConfigParams{
		Namespace: &namespace,
		Page: &workflow.Pager{
			Page: 1,
			Size: 1,
		},
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "query default order config failed, namespace: %s", namespace)
	}
	if len(exists) > 0 {
		return exists[0], nil
	}

	// 1. 定义流程
	// 配送中没有声明后置节点, 默认是定义顺序中的下一个(完成)
	flowJson := `[
		{
			"key": "order_created",
			"code": "created",
			"status": "Order created",
			"details": "New order was created"
		},
		{
			"key": "order_dispatched",
			"code": "dispatched",
			"status": "Order dispatched",
			"details": "Order was dispatched to driver",
			"next": ["enroute", "pickup"]
		},
		{
			"key": "order_pickup",
			"code": "pickup",
			"status": "Ready for pickup",
			"details": "Customer picks up the order in store",
			"next": "completed",
			"previous": "dispatched"
		},
		{
			"key": "order_enroute",
			"code": "enroute",
			"status": "Driver enroute",
			"details": "Driver is enroute to the customer",
			"previous": "dispatched"
		},
		{
			"key": "order_completed",
			"code": "completed",
			"status": "Order completed",
			"details": "Driver completed the order",
			"previous": ["enroute", "pickup"],
			"complete": true,
			"require_pod": true,
			"pod_method": "signature"
		}
	]`
	flow, err := workflow.ParseFlowDefinition([]byte(flowJson))
	if err != nil {
		return nil, errors.WithMessage(err, "parse default flow failed")
	}

	// 2. 创建配置
	orderConfig, err := service.CreateOrderConfig(ctx, &workflow.CreateOrderConfigReq{
		Tenant:      tenant,
		Name:        DefaultOrderConfigName,
		Description: "Default delivery flow",
		CoreService: true,
		Tags:        []string{"default"},
		Flow:        flow,
		Meta: map[string]any{
			"source": "commonregister",
		},
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "create default order config failed, namespace: %s", namespace)
	}

	// 3. 发布
	orderConfig, err = service.PublishOrderConfig(ctx, &workflow.PublishOrderConfigReq{
		OrderConfigID: orderConfig.ID,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "publish default order config failed, namespace: %s", namespace)
	}
	return orderConfig, nil
}
