package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AssetsMinted counts mint operations per ledger
	AssetsMinted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_assets_minted_total",
			Help: "Total number of assets minted",
		},
		[]string{"ledger"},
	)

	// AssetsBurned counts burn operations per ledger
	AssetsBurned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_assets_burned_total",
			Help: "Total number of assets burned",
		},
		[]string{"ledger"},
	)

	// MessagesSent counts transfer messages submitted to the transport
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_messages_sent_total",
			Help: "Total number of transfer messages submitted to the transport",
		},
		[]string{"source", "destination"},
	)

	// MessagesReceived counts inbound deliveries accepted by an endpoint
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_messages_received_total",
			Help: "Total number of inbound transfer messages accepted",
		},
		[]string{"ledger", "source"},
	)

	// DeliveriesRejected counts inbound deliveries rejected before minting
	DeliveriesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_deliveries_rejected_total",
			Help: "Total number of inbound deliveries rejected",
		},
		[]string{"ledger", "reason"},
	)

	// FeeBalance tracks the prepaid transport fee balance per endpoint
	FeeBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_fee_balance",
			Help: "Current prepaid transport fee balance",
		},
		[]string{"ledger"},
	)

	// FeesSpent tracks cumulative transport fees paid per destination
	FeesSpent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_fees_spent_total",
			Help: "Cumulative transport fees authorized for collection",
		},
		[]string{"source", "destination"},
	)

	// RouterQueueDepth tracks envelopes waiting for delivery in the router
	RouterQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_router_queue_depth",
			Help: "Envelopes currently queued for delivery",
		},
	)

	// ErrorsTotal counts errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
