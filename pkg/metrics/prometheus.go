package metrics

import (
	"GridPulse/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	readings       *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
	observed       prometheus.Gauge
	forecast       prometheus.Gauge
	loadRatio      prometheus.Gauge
	classification prometheus.Gauge
	windowSamples  prometheus.Gauge
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		readings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_readings_accepted_total",
				Help: "Readings accepted into the hand-off queue",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridpulse_queue_depth",
			Help: "Readings waiting in the hand-off queue at the start of a tick",
		}),
		observed: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridpulse_observed_kw",
			Help: "Latest observed load in kW",
		}),
		forecast: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridpulse_forecast_kw",
			Help: "Latest one-step-ahead forecast in kW",
		}),
		loadRatio: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridpulse_load_ratio",
			Help: "Forecast over alert threshold, clamped to [0,1]",
		}),
		classification: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridpulse_classification_level",
			Help: "0 nominal, 1 elevated, 2 critical",
		}),
		windowSamples: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridpulse_history_samples",
			Help: "Entries currently held in the history window",
		}),
	}
}

// RecordReading counts a reading accepted from source (mqtt, kafka, nats).
func (r *Recorder) RecordReading(source string) {
	r.readings.WithLabelValues(source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordQueueDepth(n int) {
	r.queueDepth.Set(float64(n))
}

// RecordSnapshot mirrors the KPIs of s. The sentinel only resets the sample count.
func (r *Recorder) RecordSnapshot(s models.Snapshot) {
	r.windowSamples.Set(float64(s.Samples))
	if !s.HasData {
		return
	}
	r.observed.Set(s.Observed)
	r.forecast.Set(s.Forecast)
	r.loadRatio.Set(s.LoadRatio)
	r.classification.Set(float64(s.Classification.Level()))
}
