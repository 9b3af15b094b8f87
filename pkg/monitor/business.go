package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 派发相关指标
type BusinessMetrics struct {
	DispatchTotal         *prometheus.CounterVec
	DispatchDuration      *prometheus.HistogramVec
	StateTransitionsTotal *prometheus.CounterVec
	PollAttempts          prometheus.Histogram
	PathSkippedTotal      *prometheus.CounterVec
	ConfirmRejectedTotal  *prometheus.CounterVec
	OutboxRelayedTotal    *prometheus.CounterVec
}

// Business 全局实例, 未初始化时为 nil, 调用方需判断
var Business *BusinessMetrics

// InitBusinessMetrics 在 reg 上注册业务指标; 测试里传入独立的 prometheus.NewRegistry()
func InitBusinessMetrics(reg prometheus.Registerer) *BusinessMetrics {
	f := promauto.With(reg)
	Business = &BusinessMetrics{
		DispatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_total",
			Help: "Dispatch runs by kind, path and final outcome",
		}, []string{"kind", "path", "outcome"}),
		DispatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Duration of a dispatch run from probing to confirmation",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"path"}),
		StateTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_state_transitions_total",
			Help: "Dispatch state machine transitions",
		}, []string{"from", "to"}),
		PollAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_poll_attempts",
			Help:    "wallet_getCallsStatus queries per batch dispatch",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 13},
		}),
		PathSkippedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_path_skipped_total",
			Help: "Paths skipped because the wallet lacks the capability",
		}, []string{"path"}),
		ConfirmRejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_confirm_rejected_total",
			Help: "Backend confirmations rejected",
		}, []string{"kind"}),
		OutboxRelayedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_outbox_relayed_total",
			Help: "Outbox messages relayed to the message queue",
		}, []string{"status"}),
	}
	return Business
}
