// Package metrics exports pipeline measurements in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telegram-gather/internal/application"
)

const namespace = "telegram_gather"

// Prometheus implements application.Recorder on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	runsInFlight  prometheus.Gauge
	tempFiles     prometheus.Gauge
}

var _ application.Recorder = (*Prometheus)(nil)

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Voice message runs by final outcome",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of a whole voice message run in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of a single pipeline stage in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage", "status"}, // status: success, error
		),
		runsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_in_flight",
				Help:      "Number of voice messages currently being processed",
			},
		),
		tempFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "temp_files_active",
				Help:      "Number of downloaded audio files not yet released",
			},
		),
	}

	p.registry.MustRegister(
		p.runsTotal,
		p.runDuration,
		p.stageDuration,
		p.runsInFlight,
		p.tempFiles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry at /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (p *Prometheus) RunStarted() {
	p.runsInFlight.Inc()
}

func (p *Prometheus) RunFinished(outcome application.Outcome, elapsed time.Duration) {
	p.runsInFlight.Dec()
	p.runsTotal.WithLabelValues(string(outcome)).Inc()
	p.runDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func (p *Prometheus) ObserveStage(stage application.Stage, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.stageDuration.WithLabelValues(string(stage), status).Observe(elapsed.Seconds())
}

func (p *Prometheus) TempFileCreated() {
	p.tempFiles.Inc()
}

func (p *Prometheus) TempFileReleased() {
	p.tempFiles.Dec()
}
