package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	plansTotal     *prometheus.CounterVec
	classOutcomes  *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	forecastsTotal *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		plansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalloc_plans_total",
				Help: "Plans computed by risk profile and outcome",
			},
			[]string{"profile", "status"},
		),
		classOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalloc_class_allocations_total",
				Help: "Class allocations by rule used",
			},
			[]string{"class", "rule"},
		),
		fallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalloc_fallbacks_total",
				Help: "Times a class fell back to a simpler rule",
			},
			[]string{"class", "reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalloc_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		forecastsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalloc_forecasts_total",
				Help: "Predictions served, split by cache hit",
			},
			[]string{"class", "cached"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finalloc_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPlan counts a finished plan. status is ok, partial or empty.
func (r *Recorder) RecordPlan(profile, status string) {
	r.plansTotal.WithLabelValues(profile, status).Inc()
}

func (r *Recorder) RecordClassOutcome(class, rule string) {
	r.classOutcomes.WithLabelValues(class, rule).Inc()
}

func (r *Recorder) RecordFallback(class, reason string) {
	r.fallbacksTotal.WithLabelValues(class, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordForecast(class string, cached bool) {
	label := "false"
	if cached {
		label = "true"
	}
	r.forecastsTotal.WithLabelValues(class, label).Inc()
}
