package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FeeMetrics 定义费用编辑相关的业务指标
// 未注册时同样可以打点，方便单元测试直接使用
type FeeMetrics struct {
	TierSelectedTotal    *prometheus.CounterVec
	LowFeeWarningsTotal  prometheus.Counter
	CustomDefaultSaves   *prometheus.CounterVec
	EditSessionsTotal    *prometheus.CounterVec
	DraftsActive         prometheus.Gauge
	EstimateFetchSeconds prometheus.Histogram
}

var Fee = &FeeMetrics{
	TierSelectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gasfee_tier_selected_total",
		Help: "Number of fee tier selections, by tier",
	}, []string{"tier"}),
	LowFeeWarningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gasfee_low_fee_warnings_total",
		Help: "Number of low fee warnings raised",
	}),
	CustomDefaultSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gasfee_custom_default_saves_total",
		Help: "Custom fee default writes, by outcome",
	}, []string{"outcome"}),
	EditSessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gasfee_edit_sessions_total",
		Help: "Closed edit sessions, by outcome (saved, cancelled)",
	}, []string{"outcome"}),
	DraftsActive: prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gasfee_drafts_active",
		Help: "Transaction drafts currently held",
	}),
	EstimateFetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gasfee_estimate_fetch_seconds",
		Help:    "Latency of network fee estimate lookups",
		Buckets: prometheus.DefBuckets,
	}),
}

func registerFeeMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		Fee.TierSelectedTotal,
		Fee.LowFeeWarningsTotal,
		Fee.CustomDefaultSaves,
		Fee.EditSessionsTotal,
		Fee.DraftsActive,
		Fee.EstimateFetchSeconds,
	)
}
