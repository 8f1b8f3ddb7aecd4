// Package main Scholarium HTTP服务
//
// @title           Scholarium API
// @version         1.0
// @description     书目镜像、捐赠与购买服务
// @BasePath        /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiebiao/scholarium/internal/app"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/internal/infrastructure/logger"
)

// main 加载配置、组装依赖、启动HTTP服务并等待退出信号
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	l := logger.New(cfg)

	api, cleanup, err := app.BuildAPI(cfg, l)
	if err != nil {
		l.Error("初始化失败", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		l.Info("服务启动", "addr", srv.Addr, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("服务异常退出", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("正在关闭服务")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l.Error("服务关闭超时", "error", err)
	}
}
