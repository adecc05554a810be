package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters and histograms, partitioned by chain where it matters.

var (
	// Poller
	PollerCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "poller",
		Name:      "cycles_total",
		Help:      "Total poll cycles per chain",
	}, []string{"chain", "outcome"})

	PollerCursorBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lensbot",
		Subsystem: "poller",
		Name:      "cursor_block",
		Help:      "Last committed block number per chain",
	}, []string{"chain"})

	PollerTransfersDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "poller",
		Name:      "transfers_detected_total",
		Help:      "Transfers affecting watched wallets",
	}, []string{"chain", "category"})

	PollerCycleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lensbot",
		Subsystem: "poller",
		Name:      "cycle_duration_seconds",
		Help:      "Poll cycle duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"chain"})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "JSON-RPC calls by chain, method, and status",
	}, []string{"chain", "method", "status"})

	// Notifications
	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "notify",
		Name:      "sent_total",
		Help:      "Notifications delivered, by kind",
	}, []string{"kind"})

	NotificationsSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "notify",
		Name:      "suppressed_total",
		Help:      "Notifications suppressed by subscriber settings or dedup",
	}, []string{"reason"})

	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "notify",
		Name:      "failed_total",
		Help:      "Notification deliveries that returned an error",
	}, []string{"kind"})

	NotifyQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lensbot",
		Subsystem: "notify",
		Name:      "queue_depth",
		Help:      "Pending messages in the dispatch queue",
	})

	// Price alerts
	AlertPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "alerts",
		Name:      "passes_total",
		Help:      "Completed evaluation passes over active alerts",
	})

	AlertsTriggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "alerts",
		Name:      "triggered_total",
		Help:      "Alerts transitioned to triggered",
	}, []string{"kind"})

	AlertGroupsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "alerts",
		Name:      "groups_skipped_total",
		Help:      "Alert groups skipped because no price could be resolved",
	})

	// Price lookups
	PriceCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "price",
		Name:      "cache_hits_total",
		Help:      "Price lookups answered from cache",
	})

	PriceCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "price",
		Name:      "cache_misses_total",
		Help:      "Price lookups that went to an external source",
	})

	OracleCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "price",
		Name:      "oracle_calls_total",
		Help:      "External price-oracle calls by endpoint and status",
	}, []string{"endpoint", "status"})

	OracleRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lensbot",
		Subsystem: "price",
		Name:      "rate_limit_waits_total",
		Help:      "Times an oracle call waited on the pacing limiter",
	})
)
