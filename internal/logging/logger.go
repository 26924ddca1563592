// Package logging 初始化 slog 日志
//
// workflow 包内部直接使用 slog 的默认logger, 这里负责按配置生成logger并设置成默认logger
package logging

import (
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	// debug, info, warn, error
	Level string `yaml:"level"`
	// json, text
	Format string `yaml:"format"`
	// stdout, stderr 或者文件路径
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

type Logger struct {
	*slog.Logger
	config Config
}

func New(cfg Config) (*Logger, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid logging config")
	}
	cfg.setDefaults()

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid log level %q", cfg.Level)
	}
	writer, err := getWriter(cfg.Output)
	if err != nil {
		return nil, errors.WithMessage(err, "get output writer failed")
	}
	return newWithWriter(cfg, level, writer)
}

func newWithWriter(cfg Config, level slog.Level, writer io.Writer) (*Logger, error) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		return nil, errors.Errorf("unsupported log format: %s", cfg.Format)
	}
	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
	}, nil
}

// SetDefault 设置成slog的默认logger, workflow包里的日志都会走这里
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

func (l *Logger) Config() Config {
	return l.config
}

func (cfg *Config) validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Level != "" && !slices.Contains(validLevels, strings.ToLower(cfg.Level)) {
		return errors.Errorf("level must be one of: %s", strings.Join(validLevels, ", "))
	}
	validFormats := []string{"json", "text"}
	if cfg.Format != "" && !slices.Contains(validFormats, cfg.Format) {
		return errors.Errorf("format must be one of: %s", strings.Join(validFormats, ", "))
	}
	return nil
}

func (cfg *Config) setDefaults() {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown level: %s", level)
}

func getWriter(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %q failed", output)
	}
	return file, nil
}
