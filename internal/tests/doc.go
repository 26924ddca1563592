// Package tests 是 order-workflow 的集成测试
//
// 包在 internal/ 下, 外部项目无法导入
//
// 测试内容:
//   - 订单流程配置的创建、修改、发布、删除
//   - yaml 流程定义导入之后的导航
//   - 节点透传字段经过持久化之后保持不变
//   - 并发编辑
//
// 运行测试:
//
//	go test ./internal/tests/...
package tests
