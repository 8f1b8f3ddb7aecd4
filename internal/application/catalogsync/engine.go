// Package catalogsync 把远程书目服务的集合树同步到本地镜像
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/notification"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	"github.com/xiebiao/scholarium/pkg/metrics"
	"github.com/xiebiao/scholarium/pkg/tracing"
)

const collectionsScope = "collections"

// Options 同步规则
type Options struct {
	OwnedTags            []string
	ExcludedTags         []string
	RecordTypes          []string // 允许的远程条目类型，空表示全部
	AttachmentFormats    []string
	PhysicalItemType     string
	PhysicalDefaultPrice int // 0表示未定价
	DigitalDefaultPrice  int
	LockTTL              time.Duration
}

// OptionsFromConfig 从配置构造同步规则
func OptionsFromConfig(cfg config.SyncConfig) Options {
	return Options{
		OwnedTags:            cfg.OwnedTags,
		ExcludedTags:         cfg.ExcludedTags,
		RecordTypes:          cfg.ItemTypes,
		AttachmentFormats:    cfg.AttachmentFormats,
		PhysicalItemType:     cfg.PhysicalItemType,
		PhysicalDefaultPrice: cfg.PhysicalDefaultPrice,
		DigitalDefaultPrice:  cfg.DigitalDefaultPrice,
		LockTTL:              cfg.LockTTL,
	}
}

// Engine 同步引擎
// 设计说明:
// 1. 只有同步引擎写入集合、条目和附件；商品库存只按增量调整
// 2. 单条记录格式错误只跳过该记录；删除被保护时通知运维，不中断批次
// 3. 同一范围的同步由singleflight合并进程内并发调用，由Locker排斥其他进程
type Engine struct {
	client    CatalogClient
	catalog   catalog.Repository
	items     inventory.Repository
	purchases purchase.Repository
	tx        purchase.Transactor
	resolver  RequestResolver
	notifier  notification.Notifier
	locker    Locker
	opts      Options
	logger    *slog.Logger
	now       func() time.Time

	group singleflight.Group
}

// NewEngine 创建同步引擎；resolver为nil时不处理申请
func NewEngine(
	client CatalogClient,
	catalogRepo catalog.Repository,
	items inventory.Repository,
	purchases purchase.Repository,
	tx purchase.Transactor,
	resolver RequestResolver,
	notifier notification.Notifier,
	locker Locker,
	opts Options,
	logger *slog.Logger,
) *Engine {
	metrics.InitMetrics()
	if opts.PhysicalItemType == "" {
		opts.PhysicalItemType = "purchase"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Engine{
		client:    client,
		catalog:   catalogRepo,
		items:     items,
		purchases: purchases,
		tx:        tx,
		resolver:  resolver,
		notifier:  notifier,
		locker:    locker,
		opts:      opts,
		logger:    logger.With("component", "catalogsync"),
		now:       time.Now,
	}
}

// SyncAll 先同步集合树，再逐个同步集合内条目
// 单个集合失败不影响其他集合，错误合并返回
func (e *Engine) SyncAll(ctx context.Context) ([]*Report, error) {
	report, err := e.SyncCollections(ctx)
	if err != nil {
		return nil, err
	}
	reports := []*Report{report}

	collections, err := e.catalog.ListCollections(ctx)
	if err != nil {
		return reports, err
	}

	var errs []error
	for _, c := range collections {
		r, err := e.SyncCollectionEntries(ctx, c)
		if err != nil {
			e.logger.ErrorContext(ctx, "集合同步失败", "collection", c.ExternalKey, "error", err)
			errs = append(errs, fmt.Errorf("集合%s: %w", c.ExternalKey, err))
			continue
		}
		reports = append(reports, r)
	}
	return reports, errors.Join(errs...)
}

// SyncCollectionByKey 按外部键同步单个本地集合
func (e *Engine) SyncCollectionByKey(ctx context.Context, key string) (*Report, error) {
	c, err := e.catalog.FindCollectionByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.SyncCollectionEntries(ctx, c)
}

// guarded 在进程内合并并跨进程互斥地执行一次同步，记录耗时和结果
func (e *Engine) guarded(ctx context.Context, scope string, fn func(ctx context.Context, r *Report) error) (*Report, error) {
	v, err, _ := e.group.Do(scope, func() (interface{}, error) {
		release, err := e.locker.Acquire(ctx, "sync:"+scope, e.opts.LockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				e.logger.WarnContext(ctx, "释放同步锁失败", "scope", scope, "error", err)
			}
		}()

		kind := "entries"
		if scope == collectionsScope {
			kind = collectionsScope
		}

		ctx, span := tracing.StartSpan(ctx, "catalogsync", "sync."+kind)
		report := newReport(scope, e.now())
		err = fn(ctx, report)
		tracing.EndSpan(span, err)

		report.Duration = e.now().Sub(report.StartedAt)
		report.publish()

		result := "success"
		if err != nil {
			result = "failure"
		}
		metrics.IncCounterVec(metrics.SyncRunsTotal, map[string]string{"scope": kind, "result": result})
		metrics.ObserveHistogramVec(metrics.SyncDuration, map[string]string{"scope": kind}, report.Duration.Seconds())

		if err != nil {
			return report, err
		}
		e.logger.InfoContext(ctx, "同步完成",
			"scope", scope,
			"collections", report.Collections.String(),
			"entries", report.Entries.String(),
			"attachments", report.Attachments.String(),
			"violations", len(report.Violations),
			"elapsed", report.Duration)
		return report, nil
	})
	report, _ := v.(*Report)
	return report, err
}

// violation 记录被拒绝的删除并通知运维
func (e *Engine) violation(ctx context.Context, r *Report, kind, key, reason string) {
	r.Violations = append(r.Violations, Violation{Kind: kind, Key: key, Reason: reason})
	metrics.IncCounter(metrics.ProtectionViolationsTotal)
	e.logger.WarnContext(ctx, "拒绝删除", "kind", kind, "key", key, "reason", reason)

	n := notification.Notification{
		Kind:      notification.KindProtectionViolation,
		Subject:   fmt.Sprintf("%s %s", kind, key),
		Detail:    reason,
		CreatedAt: e.now(),
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.ErrorContext(ctx, "通知投递失败", "kind", n.Kind, "error", err)
	}
}

// resolve 商品恢复可售或定价后处理申请，失败只记日志
func (e *Engine) resolve(ctx context.Context, itemID uint) {
	if e.resolver == nil {
		return
	}
	n, err := e.resolver.ResolveRequests(ctx, itemID)
	if err != nil {
		e.logger.WarnContext(ctx, "处理申请失败", "item_id", itemID, "error", err)
		return
	}
	if n > 0 {
		e.logger.InfoContext(ctx, "申请已加入购物车", "item_id", itemID, "accounts", n)
	}
}
