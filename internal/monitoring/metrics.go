package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the plant care services.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RemindersScheduled  *prometheus.CounterVec
	RemindersSkipped    *prometheus.CounterVec
	RemindersCancelled  prometheus.Counter
	RemindersDispatched prometheus.Counter
	RemindersDelivered  *prometheus.CounterVec
	DeliveriesFailed    *prometheus.CounterVec
	PlatformErrors      *prometheus.CounterVec
	PlantMutations      *prometheus.CounterVec
	PersistFailures     prometheus.Counter
	ProcessingDuration  *prometheus.HistogramVec
	PlantsTracked       prometheus.Gauge
	ActiveConnections   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	metrics := &Metrics{
		RemindersScheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantcare_reminders_scheduled_total",
				Help: "Total number of watering reminders handed to the notification platform",
			},
			[]string{"kind"},
		),
		RemindersSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantcare_reminders_skipped_total",
				Help: "Total number of planned watering reminders that were not scheduled",
			},
			[]string{"kind", "reason"},
		),
		RemindersCancelled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plantcare_reminders_cancelled_total",
				Help: "Total number of scheduled watering reminders cancelled",
			},
		),
		RemindersDispatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plantcare_reminders_dispatched_total",
				Help: "Total number of due reminders published for delivery",
			},
		),
		RemindersDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantcare_reminders_delivered_total",
				Help: "Total number of reminders delivered by a channel",
			},
			[]string{"channel"},
		),
		DeliveriesFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantcare_deliveries_failed_total",
				Help: "Total number of failed reminder deliveries",
			},
			[]string{"channel", "error_type"},
		),
		PlatformErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantcare_notification_platform_errors_total",
				Help: "Total number of errors returned by the notification platform",
			},
			[]string{"operation"},
		),
		PlantMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantcare_plant_mutations_total",
				Help: "Total number of plant collection mutations",
			},
			[]string{"action"},
		),
		PersistFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plantcare_persist_failures_total",
				Help: "Total number of failed collection saves",
			},
		),
		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plantcare_processing_duration_seconds",
				Help:    "Time taken to process requests and background work",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),
		PlantsTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "plantcare_plants_tracked",
				Help: "Number of plants in the collection",
			},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "plantcare_active_connections",
				Help: "Number of in-flight API requests",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		metrics.RemindersScheduled,
		metrics.RemindersSkipped,
		metrics.RemindersCancelled,
		metrics.RemindersDispatched,
		metrics.RemindersDelivered,
		metrics.DeliveriesFailed,
		metrics.PlatformErrors,
		metrics.PlantMutations,
		metrics.PersistFailures,
		metrics.ProcessingDuration,
		metrics.PlantsTracked,
		metrics.ActiveConnections,
	)

	return metrics
}

// RecordReminderScheduled records a reminder accepted by the platform
func (m *Metrics) RecordReminderScheduled(kind string) {
	if m == nil {
		return
	}
	m.RemindersScheduled.WithLabelValues(kind).Inc()
}

// RecordReminderSkipped records a planned reminder that was dropped
func (m *Metrics) RecordReminderSkipped(kind, reason string) {
	if m == nil {
		return
	}
	m.RemindersSkipped.WithLabelValues(kind, reason).Inc()
}

// RecordRemindersCancelled adds n cancelled reminders
func (m *Metrics) RecordRemindersCancelled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RemindersCancelled.Add(float64(n))
}

// RecordReminderDispatched records a due reminder published for delivery
func (m *Metrics) RecordReminderDispatched() {
	if m == nil {
		return
	}
	m.RemindersDispatched.Inc()
}

// RecordReminderDelivered records a successful delivery
func (m *Metrics) RecordReminderDelivered(channel string) {
	if m == nil {
		return
	}
	m.RemindersDelivered.WithLabelValues(channel).Inc()
}

// RecordDeliveryFailed records a failed delivery
func (m *Metrics) RecordDeliveryFailed(channel, errorType string) {
	if m == nil {
		return
	}
	m.DeliveriesFailed.WithLabelValues(channel, errorType).Inc()
}

// RecordPlatformError records an error from the notification platform
func (m *Metrics) RecordPlatformError(operation string) {
	if m == nil {
		return
	}
	m.PlatformErrors.WithLabelValues(operation).Inc()
}

// RecordPlantMutation records a collection mutation
func (m *Metrics) RecordPlantMutation(action string) {
	if m == nil {
		return
	}
	m.PlantMutations.WithLabelValues(action).Inc()
}

// RecordPersistFailure records a failed save of the collection
func (m *Metrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

// RecordProcessingDuration records processing duration
func (m *Metrics) RecordProcessingDuration(component, operation string, duration float64) {
	if m == nil {
		return
	}
	m.ProcessingDuration.WithLabelValues(component, operation).Observe(duration)
}

// SetPlantsTracked sets the current collection size
func (m *Metrics) SetPlantsTracked(n int) {
	if m == nil {
		return
	}
	m.PlantsTracked.Set(float64(n))
}

// IncrementActiveConnections increments active connections
func (m *Metrics) IncrementActiveConnections() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

// DecrementActiveConnections decrements active connections
func (m *Metrics) DecrementActiveConnections() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
