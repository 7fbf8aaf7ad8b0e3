package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "outputkeeper"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	gatherer      prom.Gatherer
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	files         *prom.CounterVec
	flushes       prom.Counter
	buildOutcome  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		gatherer: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of resolve, backup, clean and prune stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Terminal stage states per stage",
		}, []string{"stage", "state"}),
		files: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files processed per stage",
		}, []string{"stage"}),
		flushes: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "report_flushes_total",
			Help:      "Number of reports printed",
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Host build outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.files, pr.flushes, pr.buildOutcome)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage Stage, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage Stage, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(string(stage), string(result)).Inc()
}

func (p *PrometheusRecorder) AddFiles(stage Stage, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.files.WithLabelValues(string(stage)).Add(float64(n))
}

func (p *PrometheusRecorder) IncReportFlush() {
	if p == nil {
		return
	}
	p.flushes.Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

// WriteTextfile writes all gathered metrics in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.gatherer)
}
