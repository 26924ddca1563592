package tests

import (
	"context"
	"testing"

	"github.com/blingmoon/order-workflow/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test节点透传字段经过数据库之后保持不变
func TestActivityOptionsPersistence(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	flow, err := workflow.ParseFlowDefinition([]byte(`[
		{"key": "order_created", "code": "created"},
		{
			"key": "order_completed",
			"code": "completed",
			"require_pod": true,
			"pod_method": "signature",
			"sla_minutes": 45,
			"logic": {"entities": ["parcel", "pallet"]}
		}
	]`))
	require.NoError(t, err)

	created, err := service.CreateOrderConfig(ctx, &workflow.CreateOrderConfigReq{
		Tenant: acme,
		Name:   "Options",
		Flow:   flow,
		Meta:   map[string]any{"owner": map[string]any{"team": "dispatch"}},
	})
	require.NoError(t, err)

	orderConfig, err := service.GetOrderConfig(ctx, created.ID)
	require.NoError(t, err)

	t.Run("节点选项", func(t *testing.T) {
		completed := orderConfig.CompletedActivity()
		assert.True(t, completed.IsSynthesized())

		activity := orderConfig.Graph().FindByCode("completed")
		require.NotNil(t, activity)
		assert.False(t, activity.IsSynthesized())
		assert.True(t, activity.RequiresProofOfDelivery())
		assert.Equal(t, "signature", activity.PodMethod())

		options := activity.Options()
		sla, ok := options.GetInt64("sla_minutes")
		assert.True(t, ok)
		assert.Equal(t, int64(45), sla)
		entities, ok := options.GetStringSlice("logic", "entities")
		assert.True(t, ok)
		assert.Equal(t, []string{"parcel", "pallet"}, entities)
	})

	t.Run("修改返回的选项不影响节点", func(t *testing.T) {
		activity := orderConfig.Graph().FindByCode("completed")
		require.NoError(t, activity.Options().Set([]string{"pod_method"}, "photo"))
		assert.Equal(t, "signature", activity.PodMethod())
	})

	t.Run("meta", func(t *testing.T) {
		team, ok := orderConfig.Meta.GetString("owner", "team")
		assert.True(t, ok)
		assert.Equal(t, "dispatch", team)
	})

	t.Run("没有声明的边保存之后仍然是默认顺序", func(t *testing.T) {
		next, err := orderConfig.NextActivity(&workflow.Order{Status: "created"})
		require.NoError(t, err)
		assert.Equal(t, []string{"completed"}, codes(next))
		assert.False(t, orderConfig.Flow[0].Next.IsDeclared())
	})
}
