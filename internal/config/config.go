// Package config orderflow 命令行的yaml配置
package config

import (
	"os"

	"github.com/blingmoon/order-workflow/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var validatorUtil = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Tenant   TenantConfig   `yaml:"tenant"`
	Logging  logging.Config `yaml:"logging"`
}

type DatabaseConfig struct {
	// sqlite 文件路径, :memory: 表示内存库
	Path string `yaml:"path" validate:"required"`
}

// RedisConfig addr 为空时使用进程内的编辑锁
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// TenantConfig 导入流程时使用的租户
type TenantConfig struct {
	UUID string `yaml:"uuid"`
	Name string `yaml:"name" validate:"required"`
}

func (c *Config) SetDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "orderflow.sqlite3"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "orderflow:"
	}
	if c.Tenant.Name == "" {
		c.Tenant.Name = "default"
	}
}

func (c *Config) Validate() error {
	if err := validatorUtil.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// LoadConfig 读取yaml配置, 填充默认值之后校验
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "open config %s failed", path)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s failed", path)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
