package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors exported by the service.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec

	slaPasses       prometheus.Counter
	slaPassDuration prometheus.Histogram
	slaBreaches     prometheus.Counter
	slaRecoveries   prometheus.Counter
	slaEscalations  prometheus.Counter
	slaFailures     prometheus.Counter

	notifications *prometheus.CounterVec
	emails        *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "helpdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "http_errors_total",
			Help:      "Errors rendered to API clients by code.",
		}, []string{"route", "method", "code"}),
		slaPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Subsystem: "sla",
			Name:      "evaluation_passes_total",
			Help:      "Completed SLA evaluation passes.",
		}),
		slaPassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "helpdesk",
			Subsystem: "sla",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of SLA evaluation passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		slaBreaches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Subsystem: "sla",
			Name:      "breaches_total",
			Help:      "Tickets that transitioned into breach.",
		}),
		slaRecoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Subsystem: "sla",
			Name:      "recoveries_total",
			Help:      "Tickets whose breach flag was cleared.",
		}),
		slaEscalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Subsystem: "sla",
			Name:      "escalation_notifications_total",
			Help:      "Escalation notifications dispatched on new breaches.",
		}),
		slaFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Subsystem: "sla",
			Name:      "evaluation_failures_total",
			Help:      "Tickets whose evaluation failed on infrastructure errors.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "notifications_dispatched_total",
			Help:      "In-app notifications written, by type.",
		}, []string{"type"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "emails_total",
			Help:      "Outbox email delivery attempts by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.requests, m.requestDuration, m.errors,
		m.slaPasses, m.slaPassDuration, m.slaBreaches, m.slaRecoveries, m.slaEscalations, m.slaFailures,
		m.notifications, m.emails,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordSLAPass records the outcome of one evaluation pass.
func (m *Metrics) RecordSLAPass(duration time.Duration, breached, recovered, escalations, failures int) {
	if m == nil {
		return
	}
	m.slaPasses.Inc()
	m.slaPassDuration.Observe(duration.Seconds())
	m.slaBreaches.Add(float64(breached))
	m.slaRecoveries.Add(float64(recovered))
	m.slaEscalations.Add(float64(escalations))
	m.slaFailures.Add(float64(failures))
}

// RecordNotification counts one written notification.
func (m *Metrics) RecordNotification(notificationType string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notificationType).Inc()
}

// RecordEmail counts one outbox delivery attempt; result is sent, retry or failed.
func (m *Metrics) RecordEmail(result string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(result).Inc()
}
