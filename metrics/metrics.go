// Package metrics exposes Prometheus metrics for the post-processing
// pipeline:
//
//   - segment_detect_total: Detect calls
//   - segment_candidates_total: decoded candidates before suppression
//   - segment_detections_total: detections kept after suppression
//   - segment_suppressed_ratio: share of candidates removed by NMS
//   - segment_detect_duration_seconds: Detect latency histogram
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "segment"

// Collector records pipeline activity. It implements postprocess.Observer.
type Collector struct {
	DetectTotal     prometheus.Counter
	CandidatesTotal prometheus.Counter
	DetectionsTotal prometheus.Counter
	SuppressedRatio prometheus.Histogram
	DetectDuration  prometheus.Histogram
}

// NewCollector creates the pipeline metrics. Nothing is registered until
// Register is called.
func NewCollector() *Collector {
	return &Collector{
		DetectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "detect_total",
			Help:      "Total number of Detect calls",
		}),
		CandidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "candidates_total",
			Help:      "Total number of candidates above the score threshold",
		}),
		DetectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "detections_total",
			Help:      "Total number of detections kept after suppression",
		}),
		SuppressedRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "suppressed_ratio",
			Help:      "Share of candidates removed by non-maximum suppression",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		DetectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "detect_duration_seconds",
			Help:      "Detect duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.DetectTotal,
		c.CandidatesTotal,
		c.DetectionsTotal,
		c.SuppressedRatio,
		c.DetectDuration,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// ObserveDetect records one Detect call.
func (c *Collector) ObserveDetect(candidates, kept int, elapsed time.Duration) {
	c.DetectTotal.Inc()
	c.CandidatesTotal.Add(float64(candidates))
	c.DetectionsTotal.Add(float64(kept))
	if candidates > 0 {
		c.SuppressedRatio.Observe(float64(candidates-kept) / float64(candidates))
	}
	c.DetectDuration.Observe(elapsed.Seconds())
}
