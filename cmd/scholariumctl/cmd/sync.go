package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xiebiao/scholarium/internal/app"
	"github.com/xiebiao/scholarium/internal/application/catalogsync"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// healthService 同步守护进程在gRPC健康检查中的服务名
const healthService = "scholarium.sync"

var syncCollection string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "书目同步",
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "同步一次",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime, l *slog.Logger) error {
			if syncCollection != "" {
				report, err := rt.Engine.SyncCollectionByKey(ctx, syncCollection)
				printReports(cmd, report)
				return err
			}
			reports, err := rt.Engine.SyncAll(ctx)
			printReports(cmd, reports...)
			return err
		})
	},
}

var syncScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "周期同步",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime, l *slog.Logger) error {
			return schedule(ctx, rt, l)
		})
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncRunCmd, syncScheduleCmd)
	syncRunCmd.Flags().StringVar(&syncCollection, "collection", "", "只同步指定集合（远程key）")
}

// schedule 启动后立即同步一次，之后每个interval同步一次
// 健康状态在首次同步完成前为NOT_SERVING，退出时同样置为NOT_SERVING
func schedule(ctx context.Context, rt *app.Runtime, l *slog.Logger) error {
	interval := rt.Config.Sync.Interval
	if interval <= 0 {
		return fmt.Errorf("sync.interval必须大于0: %s", interval)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", rt.Config.Sync.HealthPort))
	if err != nil {
		return fmt.Errorf("监听健康检查端口失败: %w", err)
	}

	hs := health.NewServer()
	hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_NOT_SERVING)
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			l.Error("健康检查服务异常退出", "error", err)
		}
	}()
	defer srv.GracefulStop()

	l.Info("同步调度已启动", "interval", interval, "health_port", rt.Config.Sync.HealthPort)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runOnce(ctx, rt.Engine, l)
		hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

		select {
		case <-ctx.Done():
			hs.Shutdown()
			l.Info("同步调度已停止")
			return nil
		case <-ticker.C:
		}
	}
}

// runOnce 单次同步的错误只记录日志，下个周期重试
func runOnce(ctx context.Context, engine *catalogsync.Engine, l *slog.Logger) {
	reports, err := engine.SyncAll(ctx)
	switch {
	case apperrors.HasCode(err, apperrors.ErrCodeSyncInProgress):
		l.Info("其他进程正在同步，跳过本轮")
	case err != nil:
		l.Error("同步失败", "error", err)
	}
	for _, r := range reports {
		l.Info("同步完成", "scope", r.Scope,
			"collections", r.Collections.String(),
			"entries", r.Entries.String(),
			"attachments", r.Attachments.String(),
			"violations", len(r.Violations),
			"duration", r.Duration)
	}
}

func printReports(cmd *cobra.Command, reports ...*catalogsync.Report) {
	out := cmd.OutOrStdout()
	for _, r := range reports {
		if r == nil {
			continue
		}
		fmt.Fprintf(out, "[%s] %s\n", r.Scope, r.Duration.Round(time.Millisecond))
		fmt.Fprintf(out, "  集合: %s\n", r.Collections)
		fmt.Fprintf(out, "  条目: %s\n", r.Entries)
		fmt.Fprintf(out, "  附件: %s\n", r.Attachments)
		for _, v := range r.Violations {
			fmt.Fprintf(out, "  拒绝删除 %s %s: %s\n", v.Kind, v.Key, v.Reason)
		}
	}
}
