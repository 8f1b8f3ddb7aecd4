//go:build wireinject
// +build wireinject

// Wire依赖注入配置
//
// 运行 `wire gen ./cmd/api` 生成wire_gen.go后，可用InitializeAPI替换main中的app.BuildAPI。
// 两者组装的对象图一致，Provider全部定义在internal/app中。

package main

import (
	"log/slog"

	"github.com/google/wire"

	"github.com/xiebiao/scholarium/internal/app"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
)

// InitializeAPI 初始化HTTP服务
// cleanup按创建的逆序关闭数据库、Redis、消息队列与链路追踪
func InitializeAPI(cfg *config.Config, logger *slog.Logger) (*app.API, func(), error) {
	wire.Build(
		app.InfrastructureSet,
		app.RepositorySet,
		app.DomainSet,
		app.ApplicationSet,
		app.HTTPSet,
	)
	return nil, nil, nil
}
