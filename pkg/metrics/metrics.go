// Package metrics records queue and worker activity. The Prometheus
// recorder is opt-in; the engine defaults to NoopRecorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jzx17/gojobs/pkg/types"
)

// Recorder receives engine events
type Recorder interface {
	// ItemAccepted is called once per item put on the job queue
	ItemAccepted()
	// ItemCompleted is called once per outcome a worker produces
	ItemCompleted(kind types.OutcomeKind, d time.Duration)
	// WorkerBusy adjusts the number of workers running a handler
	WorkerBusy(delta int)
	// RunFinished is called once per coordinator run
	RunFinished(summary types.Summary)
}

// NoopRecorder discards every event
type NoopRecorder struct{}

func (NoopRecorder) ItemAccepted()                                  {}
func (NoopRecorder) ItemCompleted(types.OutcomeKind, time.Duration) {}
func (NoopRecorder) WorkerBusy(int)                                 {}
func (NoopRecorder) RunFinished(types.Summary)                      {}

// OrNoop returns r, or a NoopRecorder when r is nil
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

// PrometheusRecorder exports engine events as Prometheus metrics
type PrometheusRecorder struct {
	ItemsAccepted prometheus.Counter
	ItemsTotal    *prometheus.CounterVec
	ItemDuration  *prometheus.HistogramVec
	WorkersBusy   prometheus.Gauge
	RunsTotal     *prometheus.CounterVec
	RunSkipped    prometheus.Counter
}

// NewPrometheusRecorder registers the engine metrics with registerer,
// falling back to the default registerer when nil
func NewPrometheusRecorder(registerer prometheus.Registerer) *PrometheusRecorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusRecorder{
		ItemsAccepted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gojobs_items_accepted_total",
				Help: "Total number of work items accepted by job queues",
			},
		),
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojobs_items_total",
				Help: "Total number of work items processed by outcome",
			},
			[]string{"outcome"},
		),
		ItemDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gojobs_item_duration_seconds",
				Help:    "Handler duration per work item in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		WorkersBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gojobs_workers_busy",
				Help: "Number of workers currently running a handler",
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojobs_runs_total",
				Help: "Total number of coordinator runs by result",
			},
			[]string{"result"}, // result: joined, canceled
		),
		RunSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gojobs_items_skipped_total",
				Help: "Total number of items reported skipped in run summaries",
			},
		),
	}
}

func (r *PrometheusRecorder) ItemAccepted() {
	r.ItemsAccepted.Inc()
}

func (r *PrometheusRecorder) ItemCompleted(kind types.OutcomeKind, d time.Duration) {
	r.ItemsTotal.WithLabelValues(kind.String()).Inc()
	r.ItemDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
}

func (r *PrometheusRecorder) WorkerBusy(delta int) {
	r.WorkersBusy.Add(float64(delta))
}

func (r *PrometheusRecorder) RunFinished(summary types.Summary) {
	result := "joined"
	if summary.Canceled {
		result = "canceled"
	}
	r.RunsTotal.WithLabelValues(result).Inc()
	r.RunSkipped.Add(float64(summary.Skipped))
}
