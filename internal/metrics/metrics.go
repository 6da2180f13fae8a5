package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fychat_connections_active",
			Help: "Currently registered websocket connections",
		},
	)

	EnvelopesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fychat_envelopes_dispatched_total",
			Help: "Inbound envelopes processed by kind",
		},
		[]string{"kind"},
	)

	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fychat_messages_relayed_total",
			Help: "Messages relayed to a connected recipient",
		},
	)

	MessagesPushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fychat_messages_pushed_total",
			Help: "Messages handed to the push service for offline recipients",
		},
	)

	PushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fychat_push_failures_total",
			Help: "Offline fallback attempts the push service did not deliver",
		},
	)
)
