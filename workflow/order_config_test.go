package workflow

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNamespace(t *testing.T) {
	tenant := Tenant{UUID: "company-1", Name: "Acme Co"}
	for i := 0; i < 3; i++ {
		assert.Equal(t, "acme-co:order-config:my-flow", CreateNamespace("My Flow", tenant))
	}
	assert.Equal(t, "my-flow", CreateKey("My Flow"))
	assert.Equal(t, "acme-co:order-config:same-day-delivery", CreateNamespace("Same Day  Delivery!", tenant))
}

func TestOrderConfig_ApplyCreationDefaults(t *testing.T) {
	config := &OrderConfig{Name: "My Flow"}
	config.ApplyCreationDefaults(Tenant{UUID: "company-1", Name: "Acme Co"})

	assert.Equal(t, "acme-co:order-config:my-flow", config.Namespace)
	assert.Equal(t, "my-flow", config.Key)
	assert.Equal(t, InitialOrderConfigVersion, config.Version)
	assert.Equal(t, OrderConfigStatusPrivate, config.Status)
	assert.Equal(t, "company-1", config.CompanyUUID)
	assert.NotEmpty(t, config.UUID)
	assert.NotNil(t, config.Flow)
	assert.NotNil(t, config.Entities)
	assert.NotNil(t, config.Tags)
	assert.NotNil(t, config.Meta)
	assert.NotZero(t, config.CreatedAt)
	assert.False(t, config.IsPublished())

	t.Run("版本号总是从初始值开始", func(t *testing.T) {
		config := &OrderConfig{Name: "My Flow", Version: "9.9.9", Status: OrderConfigStatusPublished}
		config.ApplyCreationDefaults(Tenant{Name: "Acme Co"})
		assert.Equal(t, InitialOrderConfigVersion, config.Version)
		assert.True(t, config.IsPublished())
	})
}

func TestOrderConfig_BumpVersion(t *testing.T) {
	tests := []struct {
		name    string
		current string
		part    VersionPart
		want    string
		wantErr bool
	}{
		{name: "默认patch", current: "0.0.1", part: "", want: "0.0.2"},
		{name: "patch", current: "1.2.3", part: VersionPartPatch, want: "1.2.4"},
		{name: "minor", current: "1.2.3", part: VersionPartMinor, want: "1.3.0"},
		{name: "major", current: "1.2.3", part: VersionPartMajor, want: "2.0.0"},
		{name: "空版本号从初始值开始", current: "", part: VersionPartPatch, want: "0.0.2"},
		{name: "未知part", current: "1.2.3", part: "build", wantErr: true},
		{name: "非法版本号", current: "abc", part: VersionPartPatch, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &OrderConfig{Version: tt.current}
			got, err := config.BumpVersion(tt.part)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(errors.Cause(err), ErrInvalidVersion))
				assert.Equal(t, tt.current, config.Version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, config.Version)
		})
	}
}

func TestOrderConfig_AppliesTo(t *testing.T) {
	config := &OrderConfig{}
	assert.True(t, config.AppliesTo("parcel"))

	config.Entities = []string{"parcel", "pallet"}
	assert.True(t, config.AppliesTo("pallet"))
	assert.False(t, config.AppliesTo("envelope"))
}

func TestOrderConfig_MissingOrderContext(t *testing.T) {
	config := &OrderConfig{Namespace: "acme-co:order-config:my-flow", Flow: sequentialFlow("created", "dispatched")}

	_, err := config.CurrentActivity(nil)
	assert.True(t, errors.Is(err, ErrMissingOrderContext))
	_, err = config.NextActivity(nil)
	assert.True(t, errors.Is(err, ErrMissingOrderContext))
	_, err = config.NextFirstActivity(nil)
	assert.True(t, errors.Is(err, ErrMissingOrderContext))
	_, err = config.AfterNextActivity(nil)
	assert.True(t, errors.Is(err, ErrMissingOrderContext))
	_, err = config.PreviousActivity(nil)
	assert.True(t, errors.Is(err, ErrMissingOrderContext))
	_, err = config.Snapshot(nil)
	assert.True(t, errors.Is(err, ErrMissingOrderContext))

	// 不需要订单的查询不受影响
	assert.NotNil(t, config.CreatedActivity())
	assert.Equal(t, ActivityCodeCanceled, config.CanceledActivity().Code())
}

func TestOrderConfig_BoundOrderContext(t *testing.T) {
	config := &OrderConfig{Flow: sequentialFlow("created", "dispatched", "completed")}
	config.SetOrderContext(&Order{Status: ActivityCodeCreated})

	current, err := config.CurrentActivity(nil)
	require.NoError(t, err)
	assert.Equal(t, ActivityCodeCreated, current.Code())

	afterNext, err := config.AfterNextActivity(nil)
	require.NoError(t, err)
	assert.Equal(t, ActivityCodeCompleted, afterNext.Code())

	t.Run("传入的订单优先于绑定的订单", func(t *testing.T) {
		current, err := config.CurrentActivity(&Order{Status: ActivityCodeDispatched})
		require.NoError(t, err)
		assert.Equal(t, ActivityCodeDispatched, current.Code())
	})

	t.Run("重新绑定", func(t *testing.T) {
		config.SetOrderContext(&Order{Status: ActivityCodeCompleted})
		previous, err := config.PreviousActivity(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{ActivityCodeDispatched}, codesOf(previous))
	})
}

func TestOrderConfig_EmptyFlow(t *testing.T) {
	config := &OrderConfig{Flow: FlowDefinition{}}
	order := &Order{Status: ActivityCodeCreated}

	assert.Empty(t, config.Activities())
	next, err := config.NextActivity(order)
	require.NoError(t, err)
	assert.Empty(t, next)
	previous, err := config.PreviousActivity(order)
	require.NoError(t, err)
	assert.Empty(t, previous)
	current, err := config.CurrentActivity(order)
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Nil(t, config.CreatedActivity())
	assert.Nil(t, config.DispatchActivity())

	assert.Equal(t, ActivityCodeCanceled, config.CanceledActivity().Code())
	assert.Equal(t, ActivityCodeCompleted, config.CompletedActivity().Code())

	t.Run("flow为nil同样安全", func(t *testing.T) {
		config := &OrderConfig{}
		assert.Empty(t, config.Activities())
		snapshot, err := config.Snapshot(order)
		require.NoError(t, err)
		assert.False(t, snapshot.HasCurrent())
	})
}

func TestOrderConfig_GraphRebuiltFromFlow(t *testing.T) {
	config := &OrderConfig{Flow: sequentialFlow("created")}
	require.Len(t, config.Activities(), 1)

	config.Flow = append(config.Flow, &ActivityDefinition{Key: "order_dispatched", Code: "dispatched"})
	next, err := config.NextActivity(&Order{Status: ActivityCodeCreated})
	require.NoError(t, err)
	assert.Equal(t, []string{ActivityCodeDispatched}, codesOf(next))
}

func TestOrderConfig_NilOrderPointer(t *testing.T) {
	var nilOrder *Order

	t.Run("没有绑定订单", func(t *testing.T) {
		config := &OrderConfig{Flow: sequentialFlow("created", "dispatched")}
		_, err := config.NextActivity(nilOrder)
		assert.True(t, errors.Is(err, ErrMissingOrderContext))
		_, err = config.CurrentActivity(nilOrder)
		assert.True(t, errors.Is(err, ErrMissingOrderContext))
		_, err = config.Snapshot(nilOrder)
		assert.True(t, errors.Is(err, ErrMissingOrderContext))

		// 绑定nil指针也等于没有绑定
		config.SetOrderContext(nilOrder)
		_, err = config.CurrentActivity(nil)
		assert.True(t, errors.Is(err, ErrMissingOrderContext))
	})

	t.Run("nil指针不会覆盖绑定的订单", func(t *testing.T) {
		config := &OrderConfig{Flow: sequentialFlow("created", "dispatched")}
		config.SetOrderContext(&Order{Status: ActivityCodeCreated})

		current, err := config.CurrentActivity(nilOrder)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, ActivityCodeCreated, current.Code())
	})
}
