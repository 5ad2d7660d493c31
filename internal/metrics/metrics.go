// Package metrics holds the Prometheus collectors for reminder creation and
// delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reminderbot"

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	created       prometheus.Counter
	parseFailures prometheus.Counter
	deliveries    *prometheus.CounterVec
	scanFailures  prometheus.Counter
	scanDuration  prometheus.Histogram
	dueReminders  prometheus.Gauge
}

// MustNewMetrics registers the collectors with reg, reusing collectors that
// are already registered under the same name. Any other registration error
// panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_created_total",
			Help:      "Reminders stored after a successful time resolution.",
		}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Reminder requests rejected because the time could not be resolved.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts by result.",
		}, []string{"result"}),
		scanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_failures_total",
			Help:      "Scans aborted because due reminders could not be read.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent in one due-check-and-deliver cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		dueReminders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "due_reminders",
			Help:      "Due reminders found by the most recent scan.",
		}),
	}

	m.created = register(reg, m.created).(prometheus.Counter)
	m.parseFailures = register(reg, m.parseFailures).(prometheus.Counter)
	m.deliveries = register(reg, m.deliveries).(*prometheus.CounterVec)
	m.scanFailures = register(reg, m.scanFailures).(prometheus.Counter)
	m.scanDuration = register(reg, m.scanDuration).(prometheus.Histogram)
	m.dueReminders = register(reg, m.dueReminders).(prometheus.Gauge)
	return m
}

func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *Metrics) IncCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *Metrics) IncParseFailure() {
	if m == nil {
		return
	}
	m.parseFailures.Inc()
}

func (m *Metrics) ObserveDelivery(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.deliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) IncScanFailure() {
	if m == nil {
		return
	}
	m.scanFailures.Inc()
}

// ObserveScan records a finished scan and how many reminders it found due.
func (m *Metrics) ObserveScan(d time.Duration, due int) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(d.Seconds())
	m.dueReminders.Set(float64(due))
}
