// Package metrics 提供基于Prometheus的指标收集
//
// 指标分组：
//   - HTTP：请求总数、耗时
//   - 购买：执行结果、耗时、撤销次数、Saga补偿次数
//   - 同步：运行结果、耗时、记录处理动作、删除保护次数
//   - 熔断器：状态、请求结果
//   - 通知：投递结果
//
// 所有指标注册到默认Registry，通过/metrics暴露。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 购买
	PurchasesTotal         *prometheus.CounterVec // result: executed | insufficient_balance | insufficient_stock | unavailable | error
	PurchaseDuration       prometheus.Histogram
	PurchasesRevertedTotal prometheus.Counter
	SagaCompensationsTotal prometheus.Counter

	// 同步
	SyncRunsTotal             *prometheus.CounterVec   // scope, result
	SyncDuration              *prometheus.HistogramVec // scope
	SyncRecordsTotal          *prometheus.CounterVec   // kind, action
	ProtectionViolationsTotal prometheus.Counter

	// 熔断器
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec

	// 通知
	NotificationsTotal *prometheus.CounterVec // kind, result

	// 下载与捐赠
	DownloadsTotal *prometheus.CounterVec // source: cache | remote | denied
	DonationsTotal *prometheus.CounterVec // result: pending | executed | failed

	// 出借
	LendingsTotal *prometheus.CounterVec // event: shipped | returned | charged
)

// InitMetrics 注册全部指标，可重复调用
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "购买执行次数（按结果）",
		},
		[]string{"result"},
	)

	PurchaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purchase_execution_duration_seconds",
			Help:    "购买执行耗时（秒）",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	PurchasesRevertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purchases_reverted_total",
			Help: "撤销的购买总数",
		},
	)

	SagaCompensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "购买Saga触发补偿的次数",
		},
	)

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_runs_total",
			Help: "书目同步运行次数",
		},
		[]string{"scope", "result"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "书目同步耗时（秒）",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"scope"},
	)

	SyncRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_records_total",
			Help: "同步处理的记录数（按类型和动作）",
		},
		[]string{"kind", "action"},
	)

	ProtectionViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_sync_protection_violations_total",
			Help: "因已完成购买而拒绝删除的次数",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "通知投递次数",
		},
		[]string{"kind", "result"},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downloads_total",
			Help: "附件下载次数",
		},
		[]string{"source"},
	)

	DonationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donations_total",
			Help: "捐赠处理次数",
		},
		[]string{"result"},
	)

	LendingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lendings_total",
			Help: "出借状态变更次数",
		},
		[]string{"event"},
	)
}

// IncCounter 递增计数器
func IncCounter(counter prometheus.Counter) {
	counter.Inc()
}

// IncCounterVec 递增带标签的计数器
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// AddCounterVec 带标签的计数器增加n
func AddCounterVec(counter *prometheus.CounterVec, labels map[string]string, n int) {
	if n > 0 {
		counter.With(labels).Add(float64(n))
	}
}

// SetGaugeVec 设置带标签的仪表盘
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录一次观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

// ObserveHistogramVec 记录带标签的观测值
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
