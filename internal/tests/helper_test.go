package tests

import (
	"testing"

	"github.com/blingmoon/order-workflow/workflow"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var acme = workflow.Tenant{UUID: "company-acme", Name: "Acme Co"}

// setupTestService 创建测试服务
func setupTestService(t *testing.T) workflow.OrderConfigService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&workflow.OrderConfigPo{})
	require.NoError(t, err)

	repo := workflow.NewOrderConfigRepo(db)
	lock := workflow.NewLocalOrderConfigLock()
	return workflow.NewOrderConfigService(repo, lock)
}

func codes(activities []*workflow.GraphActivity) []string {
	ret := make([]string, 0, len(activities))
	for _, activity := range activities {
		ret = append(ret, activity.Code())
	}
	return ret
}
