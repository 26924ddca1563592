package workflow

import (
	"context"
)

type OrderConfigRepo interface {
	CreateOrderConfig(ctx context.Context, orderConfig *OrderConfigPo) (*OrderConfigPo, error)
	QueryOrderConfig(ctx context.Context, param *QueryOrderConfigParams) ([]*OrderConfigPo, error)
	CountOrderConfig(ctx context.Context, param *QueryOrderConfigParams) (int64, error)
	UpdateOrderConfig(ctx context.Context, param *UpdateOrderConfigParams) error
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
