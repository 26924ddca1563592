// Package workflow 提供订单流程配置和导航功能。
//
// 租户为不同的配送业务定义订单流程(有序的节点数组), 订单按当前状态在流程上查找
// 当前节点、后置节点、前置节点, 以及和流程无关的取消、完成节点。
//
// 主要特性：
//   - 流程定义：JSON/YAML, next/previous 可以是字符串也可以是数组, 没有声明时按定义顺序
//   - 纯导航：Navigator 显式传入订单, 没有隐藏状态, 可以并发使用
//   - 数据持久化：支持 GORM，可使用 MySQL、PostgreSQL、SQLite 等数据库
//   - 并发安全：编辑配置时支持本地锁和分布式锁（Redis）
//   - 版本管理：发布时按 semver 升级版本号
//
// 基础使用示例:
//
//	package main
//
//	import (
//	    "context"
//
//	    "github.com/blingmoon/order-workflow/workflow"
//	    "gorm.io/driver/sqlite"
//	    "gorm.io/gorm"
//	)
//
//	func main() {
//	    // 1. 初始化数据库
//	    db, _ := gorm.Open(sqlite.Open("orderflow.db"), &gorm.Config{})
//	    db.AutoMigrate(&workflow.OrderConfigPo{})
//
//	    // 2. 创建服务
//	    repo := workflow.NewOrderConfigRepo(db)
//	    lock := workflow.NewLocalOrderConfigLock()
//	    service := workflow.NewOrderConfigService(repo, lock)
//
//	    // 3. 定义流程
//	    flow, _ := workflow.ParseFlowDefinition([]byte(`[
//	        {"key": "order_created", "code": "created", "status": "Order created"},
//	        {"key": "order_dispatched", "code": "dispatched", "next": ["enroute", "pickup"]},
//	        {"key": "order_enroute", "code": "enroute", "next": "completed"},
//	        {"key": "order_pickup", "code": "pickup", "next": "completed", "previous": "dispatched"},
//	        {"key": "order_completed", "code": "completed", "complete": true, "require_pod": true}
//	    ]`))
//
//	    // 4. 创建配置, namespace 为 acme-co:order-config:same-day
//	    ctx := context.Background()
//	    orderConfig, _ := service.CreateOrderConfig(ctx, &workflow.CreateOrderConfigReq{
//	        Tenant: workflow.Tenant{UUID: "company-uuid", Name: "Acme Co"},
//	        Name:   "Same Day",
//	        Flow:   flow,
//	    })
//
//	    // 5. 按订单状态导航
//	    snapshot, _ := service.ResolveOrderActivities(ctx, orderConfig.ID,
//	        &workflow.Order{ID: "ORDER-001", Status: "dispatched"})
//	    _ = snapshot.Next      // enroute, pickup
//	    _ = snapshot.AfterNext // completed
//	}
//
// 导航规则：
//
//   - 当前节点: code 等于订单状态的第一个节点, 找不到时为nil, 不是错误
//   - next/previous 没有声明: 定义顺序中的下一个/上一个节点
//   - next/previous 声明为空数组: 没有相邻节点
//   - 引用不存在的 code: 跳过并打 warn 日志, FlowGraph.Validate 可以提前发现
//   - 取消、完成节点是合成的, 任何流程(包括空流程)都能拿到
//
// 不用数据库时可以直接使用 Navigator：
//
//	navigator := workflow.NewNavigator(workflow.NewFlowGraph(flow))
//	next := navigator.NextFirstActivity(&workflow.Order{Status: "created"})
//
// OrderConfig 上也可以绑定订单之后再查询, 没有绑定也没有传入订单时返回 ErrMissingOrderContext：
//
//	orderConfig.SetOrderContext(order)
//	current, err := orderConfig.CurrentActivity(nil)
package workflow
