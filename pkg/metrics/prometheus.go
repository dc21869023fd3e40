package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	opinions    *prometheus.CounterVec
	verdicts    *prometheus.CounterVec
	admissions  *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	releases    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	bufferDepth *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		opinions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ignitex_opinions_total",
				Help: "Strategy opinions received, by strategy and validity",
			},
			[]string{"strategy", "valid"},
		),
		verdicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ignitex_verdicts_total",
				Help: "Consensus verdicts produced, by tier",
			},
			[]string{"tier"},
		),
		admissions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ignitex_admissions_total",
				Help: "Signals that cleared every quality gate",
			},
			[]string{"instrument"},
		),
		rejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ignitex_rejections_total",
				Help: "Gate rejections, by failing gate",
			},
			[]string{"gate"},
		),
		duplicates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ignitex_duplicates_total",
				Help: "Admissions suppressed by the dedup window",
			},
			[]string{"instrument"},
		),
		releases: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ignitex_releases_total",
				Help: "Signals released to subscribers, by tier",
			},
			[]string{"tier"},
		),
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ignitex_outcomes_total",
				Help: "Resolved signal outcomes, by class",
			},
			[]string{"class"},
		),
		bufferDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ignitex_buffer_depth",
				Help: "Buffered release candidates per subscriber tier",
			},
			[]string{"tier"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ignitex_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ignitex_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordOpinion(strategyID string, valid bool) {
	label := "true"
	if !valid {
		label = "false"
	}
	r.opinions.WithLabelValues(strategyID, label).Inc()
}

func (r *Recorder) RecordVerdict(tier string) {
	r.verdicts.WithLabelValues(tier).Inc()
}

func (r *Recorder) RecordAdmission(instrument string) {
	r.admissions.WithLabelValues(instrument).Inc()
}

func (r *Recorder) RecordRejection(gate string) {
	r.rejections.WithLabelValues(gate).Inc()
}

func (r *Recorder) RecordDuplicate(instrument string) {
	r.duplicates.WithLabelValues(instrument).Inc()
}

func (r *Recorder) RecordRelease(tier string) {
	r.releases.WithLabelValues(tier).Inc()
}

func (r *Recorder) RecordOutcome(class string) {
	r.outcomes.WithLabelValues(class).Inc()
}

func (r *Recorder) RecordBufferDepth(tier string, depth int) {
	r.bufferDepth.WithLabelValues(tier).Set(float64(depth))
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
