package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// 辅助函数
func String(s string) *string { return &s }
func Bool(b bool) *bool       { return &b }
func Int64(i int64) *int64    { return &i }

const orderConfigEditLockDuration = 30 * time.Second

type CreateOrderConfigReq struct {
	Tenant      Tenant         `json:"tenant" validate:"required"`
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	Status      string         `json:"status" validate:"omitempty,oneof=private published"` // 为空时默认private
	CoreService bool           `json:"core_service"`
	Tags        []string       `json:"tags"`
	Flow        FlowDefinition `json:"flow"`
	Entities    []string       `json:"entities"`
	Meta        map[string]any `json:"meta"`
}

// UpdateOrderConfigReq 为nil的字段不修改, 非nil的空数组会清空
type UpdateOrderConfigReq struct {
	OrderConfigID int64          `json:"order_config_id" validate:"gt=0"`
	Name          *string        `json:"name" validate:"omitempty,min=1"`
	Description   *string        `json:"description"`
	CoreService   *bool          `json:"core_service"`
	Tags          []string       `json:"tags"`
	Flow          FlowDefinition `json:"flow"`
	Entities      []string       `json:"entities"`
	Meta          map[string]any `json:"meta"`
}

type PublishOrderConfigReq struct {
	OrderConfigID int64       `json:"order_config_id" validate:"gt=0"`
	VersionPart   VersionPart `json:"version_part" validate:"omitempty,oneof=patch minor major"`
}

func (s *OrderConfigServiceImpl) CreateOrderConfig(ctx context.Context, req *CreateOrderConfigReq) (*OrderConfig, error) {
	if req == nil {
		return nil, errors.WithMessage(ErrOrderConfigParamInvalid, "CreateOrderConfig failed, req is nil")
	}
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrOrderConfigParamInvalid, "CreateOrderConfig failed, req: %+v, err: %v", req, err)
	}
	if err := req.Flow.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "CreateOrderConfig failed, name: %s", req.Name)
	}
	orderConfig := &OrderConfig{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		CoreService: req.CoreService,
		Tags:        req.Tags,
		Flow:        req.Flow,
		Entities:    req.Entities,
	}
	if req.Meta != nil {
		orderConfig.Meta = NewJSONContextFromMap(req.Meta)
	}
	orderConfig.ApplyCreationDefaults(req.Tenant)
	s.logFlowIssues(ctx, orderConfig)

	po, err := toOrderConfigPo(orderConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "toOrderConfigPo failed, namespace: %s", orderConfig.Namespace)
	}
	po, err = s.repo.CreateOrderConfig(ctx, po)
	if err != nil {
		return nil, errors.WithMessagef(err, "CreateOrderConfig failed, namespace: %s", orderConfig.Namespace)
	}
	orderConfig.ID = po.ID
	orderConfig.CreatedAt = po.CreatedAt
	orderConfig.UpdatedAt = po.UpdatedAt
	slog.InfoContext(ctx, "order config created", "order_config_id", po.ID, "namespace", orderConfig.Namespace, "version", orderConfig.Version)
	return orderConfig, nil
}

func (s *OrderConfigServiceImpl) UpdateOrderConfig(ctx context.Context, req *UpdateOrderConfigReq) error {
	if req == nil {
		return errors.WithMessage(ErrOrderConfigParamInvalid, "UpdateOrderConfig failed, req is nil")
	}
	if err := validatorUtil.Struct(req); err != nil {
		return errors.Wrapf(ErrOrderConfigParamInvalid, "UpdateOrderConfig failed, req: %+v, err: %v", req, err)
	}
	if req.Flow != nil {
		if err := req.Flow.Validate(); err != nil {
			return errors.WithMessagef(err, "UpdateOrderConfig failed, orderConfigID: %d", req.OrderConfigID)
		}
	}
	err := s.editLock.NonBlockingSynchronized(ctx,
		orderConfigOpLockKey(req.OrderConfigID),
		orderConfigEditLockDuration,
		func(ctx context.Context) error {
			return s.repo.Transaction(ctx, func(ctx context.Context) error {
				return s.updateOrderConfig(ctx, req)
			})
		})
	if err != nil {
		return errors.WithMessagef(err, "UpdateOrderConfig failed, req: %+v", req)
	}
	return nil
}

func (s *OrderConfigServiceImpl) updateOrderConfig(ctx context.Context, req *UpdateOrderConfigReq) error {
	orderConfig, err := s.GetOrderConfig(ctx, req.OrderConfigID)
	if err != nil {
		return errors.WithMessagef(err, "GetOrderConfig failed, orderConfigID: %d", req.OrderConfigID)
	}
	fields := &UpdateOrderConfigField{
		Name:        req.Name,
		Description: req.Description,
		CoreService: req.CoreService,
	}
	if req.Tags != nil {
		if fields.Tags, err = json.Marshal(req.Tags); err != nil {
			return errors.WithMessage(err, "marshal tags failed")
		}
	}
	if req.Entities != nil {
		if fields.Entities, err = json.Marshal(req.Entities); err != nil {
			return errors.WithMessage(err, "marshal entities failed")
		}
	}
	if req.Meta != nil {
		if fields.Meta, err = NewJSONContextFromMap(req.Meta).ToBytes(); err != nil {
			return errors.WithMessage(err, "marshal meta failed")
		}
	}
	if req.Flow != nil {
		if fields.Flow, err = req.Flow.ToBytes(); err != nil {
			return errors.WithMessage(err, "marshal flow failed")
		}
		orderConfig.Flow = req.Flow
		s.logFlowIssues(ctx, orderConfig)
	}
	err = s.repo.UpdateOrderConfig(ctx, &UpdateOrderConfigParams{
		Where: &UpdateOrderConfigWhere{
			IDIn: []int64{req.OrderConfigID},
		},
		Fields:   fields,
		LimitMax: 1,
	})
	if err != nil {
		return errors.WithMessagef(err, "UpdateOrderConfig failed, orderConfigID: %d", req.OrderConfigID)
	}
	return nil
}

func (s *OrderConfigServiceImpl) PublishOrderConfig(ctx context.Context, req *PublishOrderConfigReq) (*OrderConfig, error) {
	if req == nil {
		return nil, errors.WithMessage(ErrOrderConfigParamInvalid, "PublishOrderConfig failed, req is nil")
	}
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrOrderConfigParamInvalid, "PublishOrderConfig failed, req: %+v, err: %v", req, err)
	}
	var published *OrderConfig
	err := s.editLock.NonBlockingSynchronized(ctx,
		orderConfigOpLockKey(req.OrderConfigID),
		orderConfigEditLockDuration,
		func(ctx context.Context) error {
			return s.repo.Transaction(ctx, func(ctx context.Context) error {
				orderConfig, err := s.publishOrderConfig(ctx, req)
				if err != nil {
					return err
				}
				published = orderConfig
				return nil
			})
		})
	if err != nil {
		return nil, errors.WithMessagef(err, "PublishOrderConfig failed, req: %+v", req)
	}
	slog.InfoContext(ctx, "order config published", "order_config_id", published.ID, "namespace", published.Namespace, "version", published.Version)
	return published, nil
}

func (s *OrderConfigServiceImpl) publishOrderConfig(ctx context.Context, req *PublishOrderConfigReq) (*OrderConfig, error) {
	orderConfig, err := s.GetOrderConfig(ctx, req.OrderConfigID)
	if err != nil {
		return nil, errors.WithMessagef(err, "GetOrderConfig failed, orderConfigID: %d", req.OrderConfigID)
	}
	if _, err := orderConfig.BumpVersion(req.VersionPart); err != nil {
		return nil, errors.WithMessagef(err, "BumpVersion failed, orderConfigID: %d", req.OrderConfigID)
	}
	orderConfig.Status = OrderConfigStatusPublished
	err = s.repo.UpdateOrderConfig(ctx, &UpdateOrderConfigParams{
		Where: &UpdateOrderConfigWhere{
			IDIn: []int64{req.OrderConfigID},
		},
		Fields: &UpdateOrderConfigField{
			Status:  String(orderConfig.Status),
			Version: String(orderConfig.Version),
		},
		LimitMax: 1,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "UpdateOrderConfig failed, orderConfigID: %d", req.OrderConfigID)
	}
	return orderConfig, nil
}

func (s *OrderConfigServiceImpl) DeleteOrderConfig(ctx context.Context, orderConfigID int64) error {
	if orderConfigID <= 0 {
		return errors.WithMessagef(ErrOrderConfigParamInvalid, "DeleteOrderConfig failed, orderConfigID: %d", orderConfigID)
	}
	err := s.editLock.NonBlockingSynchronized(ctx,
		orderConfigOpLockKey(orderConfigID),
		orderConfigEditLockDuration,
		func(ctx context.Context) error {
			if _, err := s.GetOrderConfig(ctx, orderConfigID); err != nil {
				return errors.WithMessagef(err, "GetOrderConfig failed, orderConfigID: %d", orderConfigID)
			}
			return s.repo.UpdateOrderConfig(ctx, &UpdateOrderConfigParams{
				Where: &UpdateOrderConfigWhere{
					IDIn: []int64{orderConfigID},
				},
				Fields: &UpdateOrderConfigField{
					DeletedAt: Int64(time.Now().Unix()),
				},
				LimitMax: 1,
			})
		})
	if err != nil {
		return errors.WithMessagef(err, "DeleteOrderConfig failed, orderConfigID: %d", orderConfigID)
	}
	return nil
}

func (s *OrderConfigServiceImpl) GetOrderConfig(ctx context.Context, orderConfigID int64) (*OrderConfig, error) {
	pos, err := s.repo.QueryOrderConfig(ctx, &QueryOrderConfigParams{
		OrderConfigID: &orderConfigID,
		Page: &Pager{
			Page: 1,
			Size: 1,
		},
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "QueryOrderConfig failed, orderConfigID: %d", orderConfigID)
	}
	if len(pos) == 0 {
		return nil, errors.WithMessagef(ErrOrderConfigNotFound, "orderConfigID: %d", orderConfigID)
	}
	orderConfig, err := newOrderConfigFromPo(pos[0])
	if err != nil {
		return nil, errors.WithMessagef(err, "newOrderConfigFromPo failed, orderConfigID: %d", orderConfigID)
	}
	return orderConfig, nil
}

func (s *OrderConfigServiceImpl) QueryOrderConfig(ctx context.Context, params *QueryOrderConfigParams) ([]*OrderConfig, error) {
	if params == nil {
		return nil, errors.WithMessage(ErrOrderConfigParamInvalid, "QueryOrderConfig failed, params is nil")
	}
	if err := validatorUtil.Struct(params); err != nil {
		return nil, errors.Wrapf(ErrOrderConfigParamInvalid, "QueryOrderConfig failed, params: %+v, err: %v", params, err)
	}
	pos, err := s.repo.QueryOrderConfig(ctx, params)
	if err != nil {
		return nil, errors.WithMessagef(err, "QueryOrderConfig failed, params: %+v", params)
	}
	ret := make([]*OrderConfig, 0, len(pos))
	for _, po := range pos {
		orderConfig, err := newOrderConfigFromPo(po)
		if err != nil {
			// 单条数据有问题不影响其他的
			logServiceError(ctx, "newOrderConfigFromPo failed", err, "order_config_id", po.ID)
			continue
		}
		ret = append(ret, orderConfig)
	}
	return ret, nil
}

func (s *OrderConfigServiceImpl) CountOrderConfig(ctx context.Context, params *QueryOrderConfigParams) (int64, error) {
	if params == nil {
		return 0, errors.WithMessage(ErrOrderConfigParamInvalid, "CountOrderConfig failed, params is nil")
	}
	if err := validatorUtil.Struct(params); err != nil {
		return 0, errors.Wrapf(ErrOrderConfigParamInvalid, "CountOrderConfig failed, params: %+v, err: %v", params, err)
	}
	count, err := s.repo.CountOrderConfig(ctx, params)
	if err != nil {
		return 0, errors.WithMessagef(err, "CountOrderConfig failed, params: %+v", params)
	}
	return count, nil
}

func (s *OrderConfigServiceImpl) ResolveOrderActivities(ctx context.Context, orderConfigID int64, order OrderContext) (*ActivitySnapshot, error) {
	orderConfig, err := s.GetOrderConfig(ctx, orderConfigID)
	if err != nil {
		return nil, errors.WithMessagef(err, "GetOrderConfig failed, orderConfigID: %d", orderConfigID)
	}
	snapshot, err := orderConfig.Snapshot(order)
	if err != nil {
		err = errors.WithMessagef(err, "Snapshot failed, orderConfigID: %d", orderConfigID)
		logServiceError(ctx, "ResolveOrderActivities failed", err, "order_config_id", orderConfigID)
		return nil, err
	}
	if !snapshot.HasCurrent() {
		slog.DebugContext(ctx, "order status matches no activity", "order_config_id", orderConfigID, "status", snapshot.OrderStatus)
	}
	return snapshot, nil
}

// logServiceError 严重错误打error级别日志, 其他的打warn
func logServiceError(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "err", err)
	if IsSeriousError(err) {
		slog.ErrorContext(ctx, msg, args...)
		return
	}
	slog.WarnContext(ctx, msg, args...)
}

// logFlowIssues 流程的数据问题只打日志, 不拒绝保存
func (s *OrderConfigServiceImpl) logFlowIssues(ctx context.Context, orderConfig *OrderConfig) {
	for _, issue := range orderConfig.Graph().Validate() {
		slog.WarnContext(ctx, "order config flow issue",
			"namespace", orderConfig.Namespace,
			"issue_type", issue.Type,
			"activity_key", issue.ActivityKey,
			"index", issue.Index,
			"code", issue.Code,
			"message", issue.Message,
		)
	}
}

func toOrderConfigPo(orderConfig *OrderConfig) (*OrderConfigPo, error) {
	flow, err := orderConfig.Flow.ToBytes()
	if err != nil {
		return nil, errors.WithMessage(err, "marshal flow failed")
	}
	tags, err := marshalStrings(orderConfig.Tags)
	if err != nil {
		return nil, errors.WithMessage(err, "marshal tags failed")
	}
	entities, err := marshalStrings(orderConfig.Entities)
	if err != nil {
		return nil, errors.WithMessage(err, "marshal entities failed")
	}
	meta := []byte("{}")
	if orderConfig.Meta != nil {
		if meta, err = orderConfig.Meta.ToBytes(); err != nil {
			return nil, errors.WithMessage(err, "marshal meta failed")
		}
	}
	return &OrderConfigPo{
		ID:          orderConfig.ID,
		UUID:        orderConfig.UUID,
		CompanyUUID: orderConfig.CompanyUUID,
		Name:        orderConfig.Name,
		Namespace:   orderConfig.Namespace,
		Key:         orderConfig.Key,
		Description: orderConfig.Description,
		Status:      orderConfig.Status,
		Version:     orderConfig.Version,
		CoreService: orderConfig.CoreService,
		Tags:        tags,
		Flow:        flow,
		Entities:    entities,
		Meta:        meta,
		CreatedAt:   orderConfig.CreatedAt,
		UpdatedAt:   orderConfig.UpdatedAt,
	}, nil
}

// newOrderConfigFromPo 流程定义在这里解析一次, 之后导航不再解析原始数据
func newOrderConfigFromPo(po *OrderConfigPo) (*OrderConfig, error) {
	flow, err := ParseFlowDefinition(po.Flow)
	if err != nil {
		return nil, errors.WithMessagef(err, "ParseFlowDefinition failed, orderConfigID: %d", po.ID)
	}
	tags, err := unmarshalStrings(po.Tags)
	if err != nil {
		return nil, errors.WithMessagef(err, "unmarshal tags failed, orderConfigID: %d", po.ID)
	}
	entities, err := unmarshalStrings(po.Entities)
	if err != nil {
		return nil, errors.WithMessagef(err, "unmarshal entities failed, orderConfigID: %d", po.ID)
	}
	meta, err := ParseJSONContext(po.Meta)
	if err != nil {
		return nil, errors.WithMessagef(err, "parse meta failed, orderConfigID: %d", po.ID)
	}
	return &OrderConfig{
		ID:          po.ID,
		UUID:        po.UUID,
		CompanyUUID: po.CompanyUUID,
		Name:        po.Name,
		Namespace:   po.Namespace,
		Key:         po.Key,
		Description: po.Description,
		Status:      po.Status,
		Version:     po.Version,
		CoreService: po.CoreService,
		Tags:        tags,
		Flow:        flow,
		Entities:    entities,
		Meta:        meta,
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
	}, nil
}

func marshalStrings(items []string) ([]byte, error) {
	if items == nil {
		items = make([]string, 0)
	}
	return json.Marshal(items)
}

func unmarshalStrings(b []byte) ([]string, error) {
	ret := make([]string, 0)
	if len(b) == 0 {
		return ret, nil
	}
	if err := json.Unmarshal(b, &ret); err != nil {
		return nil, err
	}
	if ret == nil {
		ret = make([]string, 0)
	}
	return ret, nil
}
