package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// OrderConfigPo 订单流程配置表, flow/entities/tags/meta 都以json存储
type OrderConfigPo struct {
	ID          int64             `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UUID        string            `gorm:"column:uuid;uniqueIndex;size:36" json:"uuid"`
	CompanyUUID string            `gorm:"column:company_uuid;index" json:"company_uuid"`
	Name        string            `gorm:"column:name" json:"name"`
	Namespace   string            `gorm:"column:namespace;index" json:"namespace"`
	Key         string            `gorm:"column:key" json:"key"`
	Description string            `gorm:"column:description" json:"description"`
	Status      OrderConfigStatus `gorm:"column:status" json:"status"`
	Version     string            `gorm:"column:version" json:"version"`
	CoreService bool              `gorm:"column:core_service" json:"core_service"`
	Tags        []byte            `gorm:"column:tags" json:"tags"`
	Flow        []byte            `gorm:"column:flow" json:"flow"` // 流程定义, 有序的节点数组
	Entities    []byte            `gorm:"column:entities" json:"entities"`
	Meta        []byte            `gorm:"column:meta" json:"meta"`
	CreatedAt   int64             `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   int64             `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt   int64             `gorm:"column:deleted_at;index" json:"deleted_at"` // 0 表示未删除
}

func (OrderConfigPo) TableName() string {
	return "order_configs"
}

type QueryOrderConfigParams struct {
	OrderConfigID *int64   `json:"order_config_id"`
	UUID          *string  `json:"uuid"`
	CompanyUUID   *string  `json:"company_uuid"`
	Namespace     *string  `json:"namespace"`
	Key           *string  `json:"key"`
	StatusIn      []string `json:"status_in" validate:"dive,oneof=private published"`
	IDGreaterThan *int64   `json:"id_greater_than"`
	WithDeleted   bool     `json:"with_deleted"`
	OrderbyIDAsc  *bool    `json:"orderby_id_asc"`
	Page          *Pager   `json:"page"`
}

type Pager struct {
	IsNoLimit *bool `json:"is_no_limit"`
	Page      int64 `json:"page"`
	Size      int64 `json:"size"`
}

type UpdateOrderConfigParams struct {
	Where    *UpdateOrderConfigWhere `json:"where" validate:"required"`
	Fields   *UpdateOrderConfigField `json:"field" validate:"required"`
	LimitMax int                     `json:"limit_max" validate:"required"`
}

type UpdateOrderConfigWhere struct {
	IDIn     []int64  `json:"id_in"`
	StatusIn []string `json:"status_in"`
}

// UpdateOrderConfigField namespace 和 key 不在这里, 创建之后不能修改
type UpdateOrderConfigField struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Version     *string `json:"version"`
	CoreService *bool   `json:"core_service"`
	Tags        []byte  `json:"tags"`
	Flow        []byte  `json:"flow"`
	Entities    []byte  `json:"entities"`
	Meta        []byte  `json:"meta"`
	DeletedAt   *int64  `json:"deleted_at"`
}

type orderConfigRepo struct {
	db *gorm.DB
}

func NewOrderConfigRepo(db *gorm.DB) OrderConfigRepo {
	return &orderConfigRepo{
		db: db,
	}
}

func (r *orderConfigRepo) CreateOrderConfig(ctx context.Context, orderConfig *OrderConfigPo) (*OrderConfigPo, error) {
	if orderConfig == nil {
		return nil, fmt.Errorf("nil OrderConfigPo")
	}
	now := time.Now().Unix()
	if orderConfig.CreatedAt == 0 {
		orderConfig.CreatedAt = now
	}
	orderConfig.UpdatedAt = now
	if err := r.GetDBWithContext(ctx).Create(orderConfig).Error; err != nil {
		return nil, errors.WithMessage(err, "CreateOrderConfig failed")
	}
	return orderConfig, nil
}

func buildQueryOrderConfigParams(db *gorm.DB, isCount bool, param *QueryOrderConfigParams) (*gorm.DB, error) {
	if param == nil {
		return nil, errors.New("nil QueryOrderConfigParams")
	}
	if param.OrderConfigID != nil {
		db = db.Where("id = ?", *param.OrderConfigID)
	}
	if param.UUID != nil {
		db = db.Where("uuid = ?", *param.UUID)
	}
	if param.CompanyUUID != nil {
		db = db.Where("company_uuid = ?", *param.CompanyUUID)
	}
	if param.Namespace != nil {
		db = db.Where("namespace = ?", *param.Namespace)
	}
	if param.Key != nil {
		// key 是保留字, 用map条件让gorm按方言加引号
		db = db.Where(map[string]any{"key": *param.Key})
	}
	if len(param.StatusIn) != 0 {
		db = db.Where("status IN ?", param.StatusIn)
	}
	if param.IDGreaterThan != nil {
		db = db.Where("id > ?", *param.IDGreaterThan)
	}
	if !param.WithDeleted {
		db = db.Where("deleted_at = ?", 0)
	}
	if param.OrderbyIDAsc != nil && !isCount {
		if *param.OrderbyIDAsc {
			db = db.Order("id asc")
		} else {
			db = db.Order("id desc")
		}
	}
	if !isCount {
		if param.Page == nil {
			return nil, errors.New("page is nil")
		}
		if param.Page.IsNoLimit != nil && *param.Page.IsNoLimit {
			// 不分页显示指定了true
			return db, nil
		}
		if param.Page.Page == 0 {
			param.Page.Page = 1
		}
		if param.Page.Size == 0 {
			param.Page.Size = 10
		}
		db = db.Offset(int(param.Page.Page-1) * int(param.Page.Size)).Limit(int(param.Page.Size))
	}
	return db, nil
}

func (r *orderConfigRepo) QueryOrderConfig(ctx context.Context, param *QueryOrderConfigParams) ([]*OrderConfigPo, error) {
	if param == nil {
		return nil, fmt.Errorf("nil QueryOrderConfigParams")
	}
	db := r.GetDBWithContext(ctx).Model(&OrderConfigPo{})
	db, err := buildQueryOrderConfigParams(db, false, param)
	if err != nil {
		return nil, errors.WithMessage(err, "buildQueryOrderConfigParams failed")
	}
	pos := make([]*OrderConfigPo, 0)
	if err := db.Find(&pos).Error; err != nil {
		return nil, errors.WithMessage(err, "QueryOrderConfig failed")
	}
	return pos, nil
}

func (r *orderConfigRepo) CountOrderConfig(ctx context.Context, param *QueryOrderConfigParams) (int64, error) {
	if param == nil {
		return 0, fmt.Errorf("nil QueryOrderConfigParams")
	}
	db := r.GetDBWithContext(ctx).Model(&OrderConfigPo{})
	db, err := buildQueryOrderConfigParams(db, true, param)
	if err != nil {
		return 0, errors.WithMessage(err, "buildQueryOrderConfigParams failed")
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, errors.WithMessage(err, "CountOrderConfig failed")
	}
	return count, nil
}

func buildUpdateOrderConfigWhere(db *gorm.DB, param *UpdateOrderConfigParams) (*gorm.DB, error) {
	isHasWhere := false
	if param == nil {
		return nil, errors.New("nil UpdateOrderConfigParams")
	}
	if param.Where == nil {
		return nil, errors.New("where is nil")
	}
	if param.Fields == nil {
		return nil, errors.New("fields is nil")
	}
	if len(param.Where.IDIn) > 0 {
		isHasWhere = true
		db = db.Where("id IN ?", param.Where.IDIn)
	}
	if len(param.Where.StatusIn) > 0 {
		isHasWhere = true
		db = db.Where("status IN ?", param.Where.StatusIn)
	}
	if !isHasWhere {
		return db, errors.Errorf("update order config need where condition, please check, params is %+v", param.Where)
	}
	return db, nil
}

func buildUpdateOrderConfigFields(fields *UpdateOrderConfigField) (map[string]any, error) {
	updateFields := make(map[string]any)
	if fields.Name != nil {
		updateFields["name"] = *fields.Name
	}
	if fields.Description != nil {
		updateFields["description"] = *fields.Description
	}
	if fields.Status != nil {
		updateFields["status"] = *fields.Status
	}
	if fields.Version != nil {
		updateFields["version"] = *fields.Version
	}
	if fields.CoreService != nil {
		updateFields["core_service"] = *fields.CoreService
	}
	if fields.Tags != nil {
		updateFields["tags"] = fields.Tags
	}
	if fields.Flow != nil {
		updateFields["flow"] = fields.Flow
	}
	if fields.Entities != nil {
		updateFields["entities"] = fields.Entities
	}
	if fields.Meta != nil {
		updateFields["meta"] = fields.Meta
	}
	if fields.DeletedAt != nil {
		updateFields["deleted_at"] = *fields.DeletedAt
	}
	if len(updateFields) == 0 {
		return nil, errors.New("no fields to update")
	}
	updateFields["updated_at"] = time.Now().Unix()
	return updateFields, nil
}

func (r *orderConfigRepo) UpdateOrderConfig(ctx context.Context, param *UpdateOrderConfigParams) error {
	if param == nil {
		return fmt.Errorf("nil UpdateOrderConfigParams")
	}
	db := r.GetDBWithContext(ctx).Model(&OrderConfigPo{})
	db, err := buildUpdateOrderConfigWhere(db, param)
	if err != nil {
		return errors.WithMessage(err, "buildUpdateOrderConfigWhere failed")
	}
	updateFields, err := buildUpdateOrderConfigFields(param.Fields)
	if err != nil {
		return errors.WithMessage(err, "buildUpdateOrderConfigFields failed")
	}
	if err := db.Updates(updateFields).Error; err != nil {
		return errors.WithMessage(err, "UpdateOrderConfig failed")
	}
	return nil
}

type contextKey string

const (
	transactionContextKey contextKey = "transaction"
)

func (r *orderConfigRepo) GetDBWithContext(ctx context.Context) *gorm.DB {
	tx := ctx.Value(transactionContextKey)
	if tx == nil {
		// 没有事务，直接返回db即可
		return r.db.WithContext(ctx)
	}
	return tx.(*gorm.DB)
}

// Transaction 事务可以嵌套, 内层直接复用外层的事务
func (r *orderConfigRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(transactionContextKey) != nil {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, transactionContextKey, tx))
	})
}
