package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/xiebiao/scholarium/internal/infrastructure/config"
)

// New 根据配置创建结构化日志器并设为全局默认
// 设计说明：
// 1. format=json用于生产环境日志采集，text用于本地开发
// 2. 业务组件通过构造函数接收*slog.Logger，不直接依赖全局变量
func New(cfg *config.Config) *slog.Logger {
	return NewWithWriter(cfg.Log, os.Stdout)
}

// NewWithWriter 指定输出目标创建日志器
func NewWithWriter(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// Discard 丢弃所有输出（测试使用）
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
