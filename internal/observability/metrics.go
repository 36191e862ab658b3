// Package observability exposes Prometheus metrics for the job scheduler
// and the alert pipeline. Collectors register against an injectable
// Registerer so tests can use a private registry.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "opspulse"

// Metrics holds every collector the hub records. Build one per process
// with NewMetrics and share it.
type Metrics struct {
	// SchedulerCycles counts completed poll cycles.
	SchedulerCycles prometheus.Counter

	// JobRuns counts handler executions by job name and outcome
	// (success, failure, timeout, panic).
	JobRuns *prometheus.CounterVec

	// JobDuration measures wall-clock handler execution time per job.
	JobDuration *prometheus.HistogramVec

	// JobDegraded is 1 while a job has crossed the consecutive-failure
	// threshold and 0 once it recovers.
	JobDegraded *prometheus.GaugeVec

	// OpenAlerts tracks currently open alerts per severity.
	OpenAlerts *prometheus.GaugeVec

	// Notifications counts pages by outcome (sent, failed).
	Notifications *prometheus.CounterVec
}

// Run outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// NewMetrics registers all collectors against reg. A nil reg falls back
// to the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SchedulerCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_cycles_total",
			Help:      "Total number of scheduler poll cycles",
		}),
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Total job handler executions by job and outcome",
		}, []string{"job", "outcome"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job handler execution time in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"job"}),
		JobDegraded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_degraded",
			Help:      "1 while a job keeps failing consecutively, 0 otherwise",
		}, []string{"job"}),
		OpenAlerts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_open",
			Help:      "Currently open alerts by severity",
		}, []string{"severity"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total notification attempts by outcome",
		}, []string{"outcome"}),
	}
}

// RecordCycle marks one completed poll cycle
func (m *Metrics) RecordCycle() {
	if m == nil {
		return
	}
	m.SchedulerCycles.Inc()
}

// RecordJobRun records one handler execution with its duration
func (m *Metrics) RecordJobRun(job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
	m.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// SetJobDegraded flips the degraded gauge for a job
func (m *Metrics) SetJobDegraded(job string, degraded bool) {
	if m == nil {
		return
	}
	v := 0.0
	if degraded {
		v = 1.0
	}
	m.JobDegraded.WithLabelValues(job).Set(v)
}

// SetOpenAlerts publishes the open-alert count for one severity
func (m *Metrics) SetOpenAlerts(severity string, count int64) {
	if m == nil {
		return
	}
	m.OpenAlerts.WithLabelValues(severity).Set(float64(count))
}

// RecordNotification records one page attempt
func (m *Metrics) RecordNotification(sent bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}
