// Package metrics exposes prometheus counters/gauges for the relay
// server, using the standard promauto.New* construction pattern.
// HTTPRequestsTotal is registered but no component increments it; the
// other collectors are updated by the server's components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ConnectionsActive  prometheus.Gauge
	ConnectionsTotal   prometheus.Counter
	BroadcastDropped   prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
	SlotUpdatesTotal   prometheus.Counter
	HistoryPushesTotal prometheus.Counter
	LinkCodesIssued    prometheus.Counter
	LinkCodesRedeemed  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "clipslot_ws_connections_active",
			Help: "Number of currently active relay WebSocket connections",
		}),
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clipslot_ws_connections_total",
			Help: "Total number of relay WebSocket connections accepted",
		}),
		BroadcastDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clipslot_broadcast_dropped_total",
			Help: "Messages dropped because a subscriber's buffer was full",
		}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clipslot_http_requests_total",
			Help: "HTTP requests to the Sync API by route and status class",
		}, []string{"route", "status"}),
		SlotUpdatesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clipslot_slot_updates_total",
			Help: "Total slot upserts accepted",
		}),
		HistoryPushesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clipslot_history_pushes_total",
			Help: "Total history items inserted (post-dedup)",
		}),
		LinkCodesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clipslot_link_codes_issued_total",
			Help: "Total pairing link codes generated",
		}),
		LinkCodesRedeemed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clipslot_link_codes_redeemed_total",
			Help: "Total pairing link codes redeemed",
		}),
	}
}
