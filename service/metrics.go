package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MessagesSent         *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	PushFailures         prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "batimarket",
			Subsystem: "messenger",
			Name:      "messages_sent_total",
			Help:      "Messages persisted by kind.",
		}, []string{"kind"}),
		NotificationFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "batimarket",
			Subsystem: "messenger",
			Name:      "notification_failures_total",
			Help:      "Message notifications that could not be persisted or published.",
		}),
		PushFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "batimarket",
			Subsystem: "messenger",
			Name:      "web_push_failures_total",
			Help:      "Background web push deliveries that failed.",
		}),
	}
}
