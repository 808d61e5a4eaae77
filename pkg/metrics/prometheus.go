package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"BoltX/internal/domain/models"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	predictions   *prometheus.CounterVec
	scores        prometheus.Histogram
	gateDecisions *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boltx_predictions_total",
				Help: "Predictions computed, by risk level",
			},
			[]string{"level"},
		),
		scores: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "boltx_risk_score",
				Help:    "Distribution of computed risk scores",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
		gateDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boltx_gate_decisions_total",
				Help: "Change-detection gate outcomes",
			},
			[]string{"persist"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boltx_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		dropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boltx_dropped_total",
				Help: "Work items dropped because a buffer was full or retries ran out",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boltx_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordPrediction(level models.RiskLevel, score int) {
	r.predictions.WithLabelValues(string(level)).Inc()
	r.scores.Observe(float64(score))
}

func (r *Recorder) RecordGateDecision(persist bool) {
	r.gateDecisions.WithLabelValues(strconv.FormatBool(persist)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordDropped(kind string) {
	r.dropped.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything. Used where metrics are optional.
type Nop struct{}

func (Nop) RecordPrediction(models.RiskLevel, int) {}
func (Nop) RecordGateDecision(bool)                {}
func (Nop) RecordError(string)                     {}
func (Nop) RecordDropped(string)                   {}
func (Nop) RecordLatency(string, float64)          {}
