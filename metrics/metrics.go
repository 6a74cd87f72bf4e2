// Package metrics collects counters for a single pipeline run and exports
// them in the Prometheus text format.
package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/kova98/insightgrep/enums"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

type Run struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	postsCollected  prometheus.Gauge
	postsFiltered   *prometheus.CounterVec
	postsCategory   *prometheus.GaugeVec
	stepFailures    *prometheus.CounterVec
	lastRun         prometheus.Gauge
}

func NewRun() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Run{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insightgrep_reddit_requests_total",
				Help: "Reddit API requests, labeled by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insightgrep_reddit_request_duration_seconds",
				Help:    "Reddit API request latency, excluding the post-request delay.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"endpoint"},
		),
		postsCollected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "insightgrep_posts_collected",
			Help: "Posts returned by the search call.",
		}),
		postsFiltered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insightgrep_posts_filtered_total",
				Help: "Posts dropped before classification, labeled by reason.",
			},
			[]string{"reason"},
		),
		postsCategory: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "insightgrep_posts_categorized",
				Help: "Posts per chapter in the generated book.",
			},
			[]string{"category"},
		),
		stepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insightgrep_step_failures_total",
				Help: "Non-fatal pipeline step failures, labeled by step.",
			},
			[]string{"step"},
		),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "insightgrep_last_run_timestamp_seconds",
			Help: "Unix time the run finished.",
		}),
	}
}

func (r *Run) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	r.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	r.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (r *Run) PostsCollected(n int) {
	r.postsCollected.Set(float64(n))
}

func (r *Run) RecordCategories(counts map[enums.Category]int) {
	for category, n := range counts {
		r.postsCategory.WithLabelValues(string(category)).Set(float64(n))
	}
}

func (r *Run) RecordDropped(counts map[string]int) {
	for reason, n := range counts {
		r.postsFiltered.WithLabelValues(reason).Add(float64(n))
	}
}

func (r *Run) StepFailed(step string) {
	r.stepFailures.WithLabelValues(step).Inc()
}

func (r *Run) Finish(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes every collected series to path, in the format read by
// the node_exporter textfile collector.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Snapshot flattens the registry into one value per series. Histograms report
// their sample count.
func (r *Run) Snapshot() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, family := range families {
		for _, m := range family.GetMetric() {
			out[seriesName(family.GetName(), m.GetLabel())] = value(family.GetType(), m)
		}
	}
	return out, nil
}

func seriesName(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].GetName() < labels[j].GetName() })

	s := name + "{"
	for i, l := range labels {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return s + "}"
}

func value(kind dto.MetricType, m *dto.Metric) float64 {
	switch kind {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return m.GetUntyped().GetValue()
	}
}
