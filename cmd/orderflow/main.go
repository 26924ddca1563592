package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/blingmoon/order-workflow/internal/commonregister"
	"github.com/blingmoon/order-workflow/internal/config"
	"github.com/blingmoon/order-workflow/internal/logging"
	"github.com/blingmoon/order-workflow/workflow"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Args struct {
	ConfigPath string
	FlowPath   string
	Name       string
	Status     string
}

func main() {
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	args := parseArgs()
	if args.ConfigPath == "" {
		return errors.New("-c or --config flag is required")
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return errors.WithMessage(err, "load config failed")
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return errors.WithMessage(err, "init logger failed")
	}
	logger.SetDefault()
	logger.Info("orderflow started", "config_path", args.ConfigPath)

	service, closeFn, err := newOrderConfigService(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	tenant := workflow.Tenant{UUID: cfg.Tenant.UUID, Name: cfg.Tenant.Name}
	orderConfig, err := importOrderConfig(ctx, service, tenant, args)
	if err != nil {
		return err
	}
	logger.Info("order config ready",
		"order_config_id", orderConfig.ID,
		"namespace", orderConfig.Namespace,
		"version", orderConfig.Version,
	)

	for _, issue := range orderConfig.Graph().Validate() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", issue)
	}

	snapshot, err := service.ResolveOrderActivities(ctx, orderConfig.ID, &workflow.Order{Status: args.Status})
	if err != nil {
		return errors.WithMessagef(err, "resolve order activities failed, status: %s", args.Status)
	}
	return printSnapshot(snapshot)
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	flowPath := flag.String("flow", "", "Path to a yaml flow definition, default delivery flow when empty")
	name := flag.String("name", "", "Order config name, used with --flow")
	status := flag.String("status", workflow.ActivityCodeCreated, "Order status to navigate from")
	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}
	return Args{
		ConfigPath: path,
		FlowPath:   *flowPath,
		Name:       *name,
		Status:     *status,
	}
}

func newOrderConfigService(cfg config.Config) (workflow.OrderConfigService, func(), error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open sqlite %s failed", cfg.Database.Path)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, errors.Wrap(err, "get sql db failed")
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&workflow.OrderConfigPo{}); err != nil {
		return nil, nil, errors.Wrap(err, "auto migrate failed")
	}

	closers := []func(){func() { _ = sqlDB.Close() }}
	editLock := workflow.NewLocalOrderConfigLock()
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		editLock = workflow.NewRedisOrderConfigLock(client, cfg.Redis.Prefix)
		closers = append(closers, func() { _ = client.Close() })
	}
	closeFn := func() {
		for _, c := range closers {
			c()
		}
	}
	return workflow.NewOrderConfigService(workflow.NewOrderConfigRepo(db), editLock), closeFn, nil
}

// importOrderConfig 没有指定流程文件时使用默认配送流程
func importOrderConfig(ctx context.Context, service workflow.OrderConfigService, tenant workflow.Tenant, args Args) (*workflow.OrderConfig, error) {
	if args.FlowPath == "" {
		orderConfig, err := commonregister.RegisterDefaultOrderConfig(ctx, service, tenant)
		if err != nil {
			return nil, errors.WithMessage(err, "register default order config failed")
		}
		return orderConfig, nil
	}
	if args.Name == "" {
		return nil, errors.New("--name is required with --flow")
	}
	b, err := os.ReadFile(args.FlowPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read flow %s failed", args.FlowPath)
	}
	flow, err := workflow.ParseFlowDefinitionYAML(b)
	if err != nil {
		return nil, errors.WithMessagef(err, "parse flow %s failed", args.FlowPath)
	}
	orderConfig, err := service.CreateOrderConfig(ctx, &workflow.CreateOrderConfigReq{
		Tenant: tenant,
		Name:   args.Name,
		Flow:   flow,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "create order config failed, name: %s", args.Name)
	}
	return orderConfig, nil
}

type activityView struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

func newActivityView(activity workflow.Activity) *activityView {
	if activity == nil {
		return nil
	}
	return &activityView{
		Key:     activity.Key(),
		Code:    activity.Code(),
		Status:  activity.Status(),
		Details: activity.Details(),
	}
}

func newActivityViews(activities []*workflow.GraphActivity) []*activityView {
	ret := make([]*activityView, 0, len(activities))
	for _, activity := range activities {
		ret = append(ret, newActivityView(activity))
	}
	return ret
}

// graphActivity 避免把nil指针包成非nil的接口
func graphActivity(activity *workflow.GraphActivity) workflow.Activity {
	if activity == nil {
		return nil
	}
	return activity
}

func printSnapshot(snapshot *workflow.ActivitySnapshot) error {
	view := map[string]any{
		"order_status": snapshot.OrderStatus,
		"current":      newActivityView(graphActivity(snapshot.Current)),
		"next":         newActivityViews(snapshot.Next),
		"next_first":   newActivityView(graphActivity(snapshot.NextFirst)),
		"after_next":   newActivityView(graphActivity(snapshot.AfterNext)),
		"previous":     newActivityViews(snapshot.Previous),
		"canceled":     newActivityView(snapshot.Canceled),
		"completed":    newActivityView(snapshot.Completed),
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}
