package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Connections prometheus.Gauge
	Published   *prometheus.CounterVec
	Delivered   prometheus.Counter
	Dropped     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "batimarket",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Sockets currently subscribed on this instance.",
		}),
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "batimarket",
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Events published to the broker by event name.",
		}, []string{"event"}),
		Delivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "batimarket",
			Subsystem: "realtime",
			Name:      "events_delivered_total",
			Help:      "Events handed to a local socket.",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "batimarket",
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a socket buffer was full.",
		}),
	}
}
