package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts processed bridge messages by type and outcome
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_messages_total",
			Help: "Total number of bridge messages processed",
		},
		[]string{"type", "outcome"},
	)

	// TransfersByStatus tracks the number of transfer records per status
	TransfersByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_transfers_by_status",
			Help: "Number of transfer records per lifecycle status",
		},
		[]string{"status"},
	)

	// TransferAmount tracks the raw amount of tokens transferred
	TransferAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_transfer_amount",
			Help:    "Raw amount of tokens per transfer",
			Buckets: prometheus.ExponentialBuckets(1, 10, 12),
		},
		[]string{"token"},
	)

	// LimiterWindowUsage tracks notional consumed in the open window per route
	LimiterWindowUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_limiter_window_usage",
			Help: "Notional value consumed in the current rate-limit window",
		},
		[]string{"route"},
	)

	// LimiterRejections counts transfers refused by the rate limiter
	LimiterRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_limiter_rejections_total",
			Help: "Total number of transfers refused by the rate limiter",
		},
		[]string{"route"},
	)

	// Paused is 1 while the bridge is paused
	Paused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_paused",
			Help: "Whether the bridge is currently paused",
		},
	)

	// SignatureVerifications counts committee signature-set verifications
	SignatureVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_signature_verifications_total",
			Help: "Total number of committee signature set verifications",
		},
		[]string{"outcome"},
	)

	// SequenceNum tracks the next expected sequence number per message type
	SequenceNum = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_sequence_num",
			Help: "Next expected sequence number per message type",
		},
		[]string{"type"},
	)
)
