package tests

import (
	"context"
	"sync"
	"testing"

	"github.com/blingmoon/order-workflow/workflow"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expressFlowYAML = `
- key: order_created
  code: created
  status: Order created
  details: New order was created
- key: order_dispatched
  code: dispatched
  status: Order dispatched
  details: Order was dispatched to driver
- key: driver_enroute
  code: enroute
  status: Driver enroute
  details: Driver is enroute
  next: [completed, failed]
- key: order_failed
  code: failed
  status: Delivery failed
  details: Driver could not deliver the order
  next: []
  previous: enroute
- key: order_completed
  code: completed
  status: Order completed
  details: Driver completed the order
  previous: enroute
  complete: true
  require_pod: true
  pod_method: photo
`

// Test完整的订单流程配置场景
func TestCompleteOrderConfigScenario(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	flow, err := workflow.ParseFlowDefinitionYAML([]byte(expressFlowYAML))
	require.NoError(t, err)

	var orderConfigID int64
	t.Run("创建配置", func(t *testing.T) {
		orderConfig, err := service.CreateOrderConfig(ctx, &workflow.CreateOrderConfigReq{
			Tenant:   acme,
			Name:     "Express Delivery",
			Flow:     flow,
			Entities: []string{"parcel"},
		})
		require.NoError(t, err)
		orderConfigID = orderConfig.ID
		assert.Equal(t, "acme-co:order-config:express-delivery", orderConfig.Namespace)
		assert.Equal(t, "express-delivery", orderConfig.Key)
		assert.Equal(t, workflow.InitialOrderConfigVersion, orderConfig.Version)
		assert.True(t, orderConfig.AppliesTo("parcel"))
		assert.False(t, orderConfig.AppliesTo("pallet"))
	})

	t.Run("订单按流程流转", func(t *testing.T) {
		order := &workflow.Order{ID: "order-1001", Status: workflow.ActivityCodeCreated}
		visited := make([]string, 0)
		for i := 0; i < 10; i++ {
			snapshot, err := service.ResolveOrderActivities(ctx, orderConfigID, order)
			require.NoError(t, err)
			require.True(t, snapshot.HasCurrent())
			visited = append(visited, snapshot.Current.Code())
			if snapshot.Current.IsComplete() || snapshot.NextFirst == nil {
				break
			}
			order.Status = snapshot.NextFirst.Code()
		}
		assert.Equal(t, []string{"created", "dispatched", "enroute", "completed"}, visited)
	})

	t.Run("分支节点", func(t *testing.T) {
		snapshot, err := service.ResolveOrderActivities(ctx, orderConfigID, &workflow.Order{Status: "enroute"})
		require.NoError(t, err)
		assert.Equal(t, []string{"completed", "failed"}, codes(snapshot.Next))
		assert.Equal(t, []string{"dispatched"}, codes(snapshot.Previous))

		snapshot, err = service.ResolveOrderActivities(ctx, orderConfigID, &workflow.Order{Status: "failed"})
		require.NoError(t, err)
		assert.Empty(t, snapshot.Next)
		assert.Nil(t, snapshot.NextFirst)
		assert.Equal(t, []string{"enroute"}, codes(snapshot.Previous))
	})

	t.Run("取消和完成节点和流程无关", func(t *testing.T) {
		snapshot, err := service.ResolveOrderActivities(ctx, orderConfigID, &workflow.Order{Status: "anything"})
		require.NoError(t, err)
		assert.False(t, snapshot.HasCurrent())
		assert.Equal(t, "order_canceled", snapshot.Canceled.Key())
		assert.Equal(t, "Order was canceled", snapshot.Canceled.Details())
		assert.Equal(t, "order_completed", snapshot.Completed.Key())
		assert.True(t, snapshot.Completed.IsSynthesized())
	})

	t.Run("修改名字不影响namespace", func(t *testing.T) {
		err := service.UpdateOrderConfig(ctx, &workflow.UpdateOrderConfigReq{
			OrderConfigID: orderConfigID,
			Name:          workflow.String("Express Delivery v2"),
			Entities:      []string{},
		})
		require.NoError(t, err)

		orderConfig, err := service.GetOrderConfig(ctx, orderConfigID)
		require.NoError(t, err)
		assert.Equal(t, "Express Delivery v2", orderConfig.Name)
		assert.Equal(t, "acme-co:order-config:express-delivery", orderConfig.Namespace)
		assert.True(t, orderConfig.AppliesTo("pallet"))
	})

	t.Run("发布", func(t *testing.T) {
		orderConfig, err := service.PublishOrderConfig(ctx, &workflow.PublishOrderConfigReq{
			OrderConfigID: orderConfigID,
			VersionPart:   workflow.VersionPartMajor,
		})
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", orderConfig.Version)
		assert.Equal(t, "已发布", workflow.GetOrderConfigStatusText(orderConfig.Status))

		count, err := service.CountOrderConfig(ctx, &workflow.QueryOrderConfigParams{
			StatusIn: []string{workflow.OrderConfigStatusPublished},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("删除之后不能再导航", func(t *testing.T) {
		require.NoError(t, service.DeleteOrderConfig(ctx, orderConfigID))
		_, err := service.ResolveOrderActivities(ctx, orderConfigID, &workflow.Order{Status: "created"})
		assert.True(t, errors.Is(err, workflow.ErrOrderConfigNotFound))
		assert.False(t, workflow.IsSeriousError(err))
	})
}

// Test同一个配置的并发编辑只有一个成功
func TestConcurrentOrderConfigEdit(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	orderConfig, err := service.CreateOrderConfig(ctx, &workflow.CreateOrderConfigReq{Tenant: acme, Name: "Concurrent"})
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, lockFailed := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.PublishOrderConfig(ctx, &workflow.PublishOrderConfigReq{OrderConfigID: orderConfig.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, workflow.LockFailedError):
				lockFailed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, succeeded+lockFailed)
	assert.GreaterOrEqual(t, succeeded, 1)

	// 每次成功的发布都会升级一次patch
	got, err := service.GetOrderConfig(ctx, orderConfig.ID)
	require.NoError(t, err)
	bumped := &workflow.OrderConfig{Version: workflow.InitialOrderConfigVersion}
	for i := 0; i < succeeded; i++ {
		_, err := bumped.BumpVersion(workflow.VersionPartPatch)
		require.NoError(t, err)
	}
	assert.Equal(t, bumped.Version, got.Version)
}
