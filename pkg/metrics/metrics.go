// Package metrics holds the Prometheus collectors of the assessment service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assessment paths
const (
	PathDeterministic = "deterministic"
	PathAdvisory      = "advisory"
)

// Batch item outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeOmitted   = "omitted"
)

// Metrics groups the service collectors
type Metrics struct {
	assessmentsTotal  *prometheus.CounterVec
	advisoryFallbacks *prometheus.CounterVec
	batchItemsTotal   *prometheus.CounterVec
	engineDuration    *prometheus.HistogramVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		assessmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careflow_assessments_total",
			Help: "Assessments produced, by engine and computation path.",
		}, []string{"engine", "path"}),
		advisoryFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careflow_advisory_fallbacks_total",
			Help: "Risk assessments that fell back to the deterministic path, by reason.",
		}, []string{"reason"}),
		batchItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careflow_batch_items_total",
			Help: "Entities processed by batch jobs, by job and outcome.",
		}, []string{"job", "outcome"}),
		engineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "careflow_engine_duration_seconds",
			Help:    "Time spent inside an assessment engine call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"engine"}),
	}
}

// AssessmentCompleted counts one produced result
func (m *Metrics) AssessmentCompleted(engine, path string) {
	if m == nil {
		return
	}
	m.assessmentsTotal.WithLabelValues(engine, path).Inc()
}

// AdvisoryFallback counts one fallback to the deterministic risk path
func (m *Metrics) AdvisoryFallback(reason string) {
	if m == nil {
		return
	}
	m.advisoryFallbacks.WithLabelValues(reason).Inc()
}

// BatchItems adds n entities with the given outcome
func (m *Metrics) BatchItems(job, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.batchItemsTotal.WithLabelValues(job, outcome).Add(float64(n))
}

// ObserveEngine records the duration since start
func (m *Metrics) ObserveEngine(engine string, start time.Time) {
	if m == nil {
		return
	}
	m.engineDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())
}
