// Package app 组装进程级依赖，供API服务与命令行工具共用
package app

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/xiebiao/scholarium/internal/application/catalogsync"
	"github.com/xiebiao/scholarium/internal/application/shop"
	"github.com/xiebiao/scholarium/internal/domain/notification"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/domain/user"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/internal/infrastructure/notify"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/scholarium/internal/infrastructure/zotero"
	"github.com/xiebiao/scholarium/pkg/jwt"
	"github.com/xiebiao/scholarium/pkg/mq"
	"github.com/xiebiao/scholarium/pkg/tracing"
)

// NotificationExchangeType 通知交换机按通知类型路由
const NotificationExchangeType = "topic"

// InfrastructureSet 基础设施依赖
var InfrastructureSet = wire.NewSet(
	ProvideDB,
	ProvideRedis,
	ProvideNotifier,
	ProvideTracer,
	ProvideZotero,
	ProvideBlobCache,
	ProvideLocker,
	mysql.NewTxManager,
	wire.Bind(new(purchase.Transactor), new(*mysql.TxManager)),
	wire.Bind(new(shop.RemoteBlobs), new(*zotero.Client)),
	wire.Bind(new(catalogsync.CatalogClient), new(*zotero.Client)),
)

// RepositorySet 仓储
var RepositorySet = wire.NewSet(
	mysql.NewUserRepository,
	mysql.NewAccountRepository,
	mysql.NewCatalogRepository,
	mysql.NewInventoryRepository,
	mysql.NewPurchaseRepository,
	mysql.NewLendingRepository,
)

// DomainSet 领域服务
var DomainSet = wire.NewSet(
	ProvideUserService,
	purchase.NewCart,
	purchase.NewLedger,
)

// ProvideDB 创建数据库连接，cleanup关闭连接池
func ProvideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// ProvideRedis redis.enabled=false时返回nil，依赖方退回进程内实现
func ProvideRedis(cfg *config.Config, logger *slog.Logger) (*goredis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(context.Background(), cfg.Redis, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { client.Close() }, nil
}

// ProvideNotifier mq.enabled时发布到RabbitMQ，否则只写日志
func ProvideNotifier(cfg *config.Config, logger *slog.Logger) (notification.Notifier, func(), error) {
	if !cfg.MQ.Enabled {
		return notify.NewLogNotifier(logger), func() {}, nil
	}
	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, NotificationExchangeType)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewMQNotifier(pub, logger), func() { pub.Close() }, nil
}

// Tracer 标记链路追踪已初始化
type Tracer struct{}

// ProvideTracer tracing.enabled时初始化全局TracerProvider
// 初始化失败只告警，未初始化时Span为空操作
func ProvideTracer(cfg *config.Config, logger *slog.Logger) (*Tracer, func()) {
	if !cfg.Tracing.Enabled {
		return &Tracer{}, func() {}
	}
	shutdown, err := tracing.Init(tracing.Options{
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Warn("链路追踪初始化失败", "endpoint", cfg.Tracing.Endpoint, "error", err)
		return &Tracer{}, func() {}
	}
	return &Tracer{}, func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("链路追踪关闭失败", "error", err)
		}
	}
}

// ProvideZotero 远程书目服务客户端
func ProvideZotero(cfg *config.Config, logger *slog.Logger) *zotero.Client {
	return zotero.NewClient(cfg.Zotero, logger)
}

// ProvideBlobCache 附件缓存，未启用Redis时不缓存
func ProvideBlobCache(cfg *config.Config, client *goredis.Client) shop.BlobCache {
	if client == nil {
		return shop.NopCache{}
	}
	return redis.NewBlobCache(client, cfg.Redis.BlobTTL)
}

// ProvideLocker 同步锁，未启用Redis时只在进程内互斥
func ProvideLocker(client *goredis.Client) catalogsync.Locker {
	if client == nil {
		return catalogsync.NewLocalLocker()
	}
	return redis.NewLocker(client)
}

// ProvideJWTManager 从配置创建JWT管理器
func ProvideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
}

// ProvideUserService 用户服务使用配置的bcrypt成本
func ProvideUserService(cfg *config.Config, repo user.Repository) user.Service {
	return user.NewService(repo, cfg.JWT.BcryptCost)
}

// ProvideShopConfig 捐赠配置
func ProvideShopConfig(cfg *config.Config) config.ShopConfig {
	return cfg.Shop
}
