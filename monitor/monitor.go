// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	MessageLatency   prometheus.Histogram
	BarriersFired    *prometheus.CounterVec
	HandlerErrors    *prometheus.CounterVec
	RoomsCreated     prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}, []string{"message"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Time from receiving a message to the room finishing it",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		BarriersFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barriers_fired_total",
			Help:      "Match barriers that completed",
		}, []string{"barrier"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Room messages rejected, by error kind",
		}, []string{"kind"}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created through the lobby",
		}),
	}
}

// Monitor owns the server metrics. Tests pass their own registry so several
// monitors can coexist.
type Monitor struct {
	metrics   *Metrics
	gatherer  prometheus.Gatherer
	startTime time.Time
}

func NewMonitor(namespace string, registry *prometheus.Registry) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		gatherer:  registry,
		startTime: time.Now(),
	}

	registry.MustRegister(
		m.metrics.OnlinePlayers,
		m.metrics.ActiveRooms,
		m.metrics.MessagesReceived,
		m.metrics.MessageLatency,
		m.metrics.BarriersFired,
		m.metrics.HandlerErrors,
		m.metrics.RoomsCreated,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncRoomsCreated() {
	m.metrics.RoomsCreated.Inc()
}

func (m *Monitor) IncMessagesReceived(message string) {
	m.metrics.MessagesReceived.WithLabelValues(message).Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// BarrierFired and HandlerFailed make Monitor a room observer.
func (m *Monitor) BarrierFired(barrier string) {
	m.metrics.BarriersFired.WithLabelValues(barrier).Inc()
}

func (m *Monitor) HandlerFailed(kind string) {
	m.metrics.HandlerErrors.WithLabelValues(kind).Inc()
}
