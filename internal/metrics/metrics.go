package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ==================== 指标定义 ====================

var (
	// UpstreamCallsTotal 上游调用计数（LLM / 图床 / 市场 API）
	UpstreamCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_upstream_calls_total",
		Help: "按上游与结果统计的外部调用数",
	}, []string{"provider", "status"})

	// UpstreamCallDuration 上游调用耗时
	UpstreamCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "erp_upstream_call_duration_seconds",
		Help:    "外部调用耗时分布",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})

	// GateWaitDuration 限流闸门排队耗时
	GateWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "erp_gate_wait_duration_seconds",
		Help:    "取得上游并发槽位的等待耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// PipelineRunsTotal 流水线终态计数
	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_pipeline_runs_total",
		Help: "按终态统计的上架流水线运行数",
	}, []string{"marketplace", "status"})

	// PipelineStageFailures 阶段失败计数
	PipelineStageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_pipeline_stage_failures_total",
		Help: "按阶段与错误类别统计的失败数",
	}, []string{"stage", "kind"})

	// InvoicesGeneratedTotal 账单生成计数
	InvoicesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "erp_invoices_generated_total",
		Help: "计费周期生成/更新的账单数",
	})

	// PartnersBlockedGauge 当前被封禁伙伴数
	PartnersBlockedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "erp_partners_blocked",
		Help: "当前处于封禁状态的伙伴数",
	})
)
