package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// pingTimeout 启动时探测连接的最长等待
const pingTimeout = 5 * time.Second

// NewClient 按配置建立连接池并探测可用性
// 附件缓存和同步锁共用这一个客户端
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "缓存服务连接失败")
	}

	logger.Info("redis已连接",
		slog.String("addr", cfg.Addr()),
		slog.Int("db", cfg.DB),
		slog.Duration("blob_ttl", cfg.BlobTTL))
	return client, nil
}
