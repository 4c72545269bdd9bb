package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 服務的 Prometheus 指標
type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	DomainEvents       *prometheus.CounterVec
	PointsMoved        *prometheus.CounterVec
	TierChanges        *prometheus.CounterVec
	ConsumerMessages   *prometheus.CounterVec
	ConsumerBatchSizes prometheus.Histogram
}

// NewMetrics 建立並註冊指標；reg 為 nil 時使用 prometheus.DefaultRegisterer
//
// 測試請傳入 prometheus.NewRegistry()，避免重複註冊 panic。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "loyalty",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		DomainEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "ledger",
				Name:      "events_total",
				Help:      "Committed domain events by type.",
			},
			[]string{"event_type"},
		),
		PointsMoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "ledger",
				Name:      "points_total",
				Help:      "Points credited or debited by entry type.",
			},
			[]string{"direction", "entry_type"},
		),
		TierChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "ledger",
				Name:      "tier_changes_total",
				Help:      "Tier promotions by target tier.",
			},
			[]string{"tier"},
		),
		ConsumerMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "consumer",
				Name:      "messages_total",
				Help:      "Order events consumed by result.",
			},
			[]string{"result"},
		),
		ConsumerBatchSizes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "loyalty",
				Subsystem: "consumer",
				Name:      "batch_size",
				Help:      "Messages per committed batch.",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.DomainEvents,
		m.PointsMoved,
		m.TierChanges,
		m.ConsumerMessages,
		m.ConsumerBatchSizes,
	)
	return m
}
