package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	sessionsCreatedCounter  prometheus.Counter
	activeSessionsGauge     prometheus.Gauge
	packetsProcessedCounter *prometheus.CounterVec
	protocolErrorsCounter   *prometheus.CounterVec
	cardsDrawnCounter       prometheus.Counter
}

func (m *metrics) SessionCreated() {
	m.sessionsCreatedCounter.Inc()
}

func (m *metrics) SetActiveSessions(count int) {
	m.activeSessionsGauge.Set(float64(count))
}

func (m *metrics) PacketProcessed(packet string) {
	m.packetsProcessedCounter.WithLabelValues(packet).Inc()
}

func (m *metrics) ProtocolError(code string) {
	m.protocolErrorsCounter.WithLabelValues(code).Inc()
}

func (m *metrics) CardDrawn() {
	m.cardsDrawnCounter.Inc()
}

var Metrics = &metrics{
	sessionsCreatedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Total number of sessions created",
	}),
	activeSessionsGauge: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_sessions_count",
		Help: "Count of the sessions registered in the session manager",
	}),
	packetsProcessedCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packets_processed_total",
		Help: "Total number of packets processed by session workers",
	}, []string{"packet"}),
	protocolErrorsCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protocol_errors_total",
		Help: "Total number of packets answered with an error response",
	}, []string{"code"}),
	cardsDrawnCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "cards_drawn_total",
		Help: "Total number of cards drawn across all sessions",
	}),
}
