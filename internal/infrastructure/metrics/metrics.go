// Package metrics exposes Prometheus counters and histograms for the MQTT
// routing path and the command publisher.
//
// A Metrics value owns its registry, so tests and the running server never
// share collectors:
//
//	m := metrics.New("safehouse")
//	router := topic.NewRouter(logger, m)
//	publisher := command.NewPublisher(client, command.Config{Observer: m})
//	mux.Handle("/metrics", m.Handler())
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/topic"
)

// Metrics implements topic.Observer and command.Observer.
type Metrics struct {
	registry *prometheus.Registry

	MessagesRouted    *prometheus.CounterVec
	MessagesUnmatched prometheus.Counter
	HandlerOutcomes   *prometheus.CounterVec
	HandlerDuration   *prometheus.HistogramVec
	CommandsPublished *prometheus.CounterVec
	PublishDuration   *prometheus.HistogramVec
	BrokerConnected   prometheus.Gauge
}

// New creates and registers every collector, plus the Go runtime and
// process collectors.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MessagesRouted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "messages_routed_total",
				Help:      "Inbound messages matched to a handler, by subscription filter",
			},
			[]string{"pattern"},
		),
		MessagesUnmatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "messages_unmatched_total",
				Help:      "Inbound messages dropped because no filter matched",
			},
		),
		HandlerOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "handler_outcomes_total",
				Help:      "Handler completions by filter and outcome (ok, rejected, failed, panic)",
			},
			[]string{"pattern", "outcome"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "handler_duration_seconds",
				Help:      "Time spent in message handlers",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pattern"},
		),
		CommandsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "command",
				Name:      "published_total",
				Help:      "Outbound device commands by class and result",
			},
			[]string{"class", "result"},
		),
		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "command",
				Name:      "publish_duration_seconds",
				Help:      "Time from publish to broker acknowledgment",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"class"},
		),
		BrokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "mqtt",
				Name:      "connected",
				Help:      "Broker connection status (1=connected, 0=disconnected)",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesRouted,
		m.MessagesUnmatched,
		m.HandlerOutcomes,
		m.HandlerDuration,
		m.CommandsPublished,
		m.PublishDuration,
		m.BrokerConnected,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// MessageRouted implements topic.Observer.
func (m *Metrics) MessageRouted(pattern string) {
	m.MessagesRouted.WithLabelValues(pattern).Inc()
}

// MessageUnmatched implements topic.Observer.
func (m *Metrics) MessageUnmatched() {
	m.MessagesUnmatched.Inc()
}

// HandlerDone implements topic.Observer.
func (m *Metrics) HandlerDone(pattern string, elapsed time.Duration, outcome topic.Outcome) {
	m.HandlerOutcomes.WithLabelValues(pattern, string(outcome)).Inc()
	m.HandlerDuration.WithLabelValues(pattern).Observe(elapsed.Seconds())
}

// CommandPublished implements command.Observer.
func (m *Metrics) CommandPublished(class string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CommandsPublished.WithLabelValues(class, result).Inc()
	m.PublishDuration.WithLabelValues(class).Observe(elapsed.Seconds())
}

// SetBrokerConnected records the broker connection state.
func (m *Metrics) SetBrokerConnected(connected bool) {
	if connected {
		m.BrokerConnected.Set(1)
		return
	}
	m.BrokerConnected.Set(0)
}
