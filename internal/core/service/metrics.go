package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatch counters. A nil *Metrics records nothing.
type Metrics struct {
	EventsTotal        *prometheus.CounterVec
	HandlerCallsTotal  *prometheus.CounterVec
	HandlerErrorsTotal *prometheus.CounterVec
	MessagesTotal      *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		EventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmxbot_events_total",
				Help: "Total number of processed events by type",
			},
			[]string{"type"}, // message, join, leave, scheduled
		),
		HandlerCallsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmxbot_handler_calls_total",
				Help: "Total number of handler invocations by handler kind",
			},
			[]string{"kind"},
		),
		HandlerErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmxbot_handler_errors_total",
				Help: "Total number of failed handler invocations by handler kind",
			},
			[]string{"kind"},
		),
		MessagesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmxbot_messages_total",
				Help: "Total number of outgoing messages by status",
			},
			[]string{"status"}, // sent, failed
		),
	}
}

func (m *Metrics) event(eventType string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) call(kind string) {
	if m == nil {
		return
	}
	m.HandlerCallsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) failure(kind string) {
	if m == nil {
		return
	}
	m.HandlerErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) message(sent bool) {
	if m == nil {
		return
	}

	status := "sent"
	if !sent {
		status = "failed"
	}
	m.MessagesTotal.WithLabelValues(status).Inc()
}
