package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	UnlockAttemptsTotal  *prometheus.CounterVec   // result: success / failure
	BroadcastTotal       *prometheus.CounterVec   // chain + result
	SigningDuration      *prometheus.HistogramVec // 全流程耗时 (按 chain)
	GasEstimateFallback  prometheus.Counter       // gas/nonce 降级次数
	TransactionsRecorded *prometheus.CounterVec   // status
	FactoryResetTotal    *prometheus.CounterVec   // result: wiped / unsupported
	WalletsDerivedTotal  prometheus.Counter
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics 初始化业务指标
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		UnlockAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_unlock_attempts_total",
			Help: "Total number of device unlock attempts",
		}, []string{"result"}),
		BroadcastTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_broadcast_total",
			Help: "Total number of broadcast attempts",
		}, []string{"chain", "result"}),
		SigningDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custody_signing_duration_seconds",
			Help:    "Duration of the sign-and-broadcast pipeline",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain"}),
		GasEstimateFallback: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_gas_estimate_fallback_total",
			Help: "Times gas price or nonce fetch failed and defaults were substituted",
		}),
		TransactionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_transactions_recorded_total",
			Help: "Transactions appended to the log",
		}, []string{"status"}),
		FactoryResetTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_factory_reset_total",
			Help: "Factory reset attempts",
		}, []string{"result"}),
		WalletsDerivedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_wallets_derived_total",
			Help: "Wallets derived after unlock",
		}),
	}
}
