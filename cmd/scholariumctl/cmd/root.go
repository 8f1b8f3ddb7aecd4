// Package cmd scholariumctl子命令
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xiebiao/scholarium/internal/app"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/internal/infrastructure/logger"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "scholariumctl",
	Short: "Scholarium运维命令行",
	Long: `scholariumctl 管理书目同步与购买记录。

SYNC:
  sync run        同步一次（全部集合或指定集合）
  sync schedule   按sync.interval周期同步，并在sync.health_port提供gRPC健康检查

CATALOG:
  collections     打印本地集合树

PURCHASES:
  grant           为账户赠送商品
  revert          撤销已执行的购买

NOTIFICATIONS:
  notify listen   消费并打印通知`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "./config", "配置文件目录")
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFrom(configDir, ".")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg), nil
}

// withRuntime 组装运行时后执行fn，结束时释放资源
func withRuntime(fn func(ctx context.Context, rt *app.Runtime, l *slog.Logger) error) error {
	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}

	rt, cleanup, err := app.BuildRuntime(cfg, l)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, rt, l)
}
