package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for document scans.
type Metrics struct {
	// Scan verdicts
	Verdicts *prometheus.CounterVec

	// OCR attempts by variant kind and outcome ("ok", "failed")
	Attempts *prometheus.CounterVec

	// How each field was resolved, by field and method
	Resolutions *prometheus.CounterVec

	// Attempts needed per scan
	AttemptsPerScan prometheus.Histogram

	ScanLatency    prometheus.Histogram
	AttemptLatency *prometheus.HistogramVec
}

// New creates the scan metrics on reg, or on the default registerer when reg
// is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_scan_verdicts_total",
			Help: "Total completed scans by verdict",
		}, []string{"verdict"}),

		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_ocr_attempts_total",
			Help: "Total OCR attempts by image variant and outcome",
		}, []string{"variant", "outcome"}),

		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_field_resolutions_total",
			Help: "Resolved fields by field kind and resolution method",
		}, []string{"field", "method"}),

		AttemptsPerScan: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docverify_scan_attempts",
			Help:    "Number of OCR attempts per scan",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 12},
		}),

		ScanLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docverify_scan_duration_seconds",
			Help:    "Duration of a full scan including every OCR attempt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),

		AttemptLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docverify_ocr_attempt_duration_seconds",
			Help:    "Duration of one OCR attempt by image variant",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"variant"}),
	}
}

// ObserveAttempt records one OCR attempt.
func (m *Metrics) ObserveAttempt(variant string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.Attempts.WithLabelValues(variant, outcome).Inc()
	m.AttemptLatency.WithLabelValues(variant).Observe(d.Seconds())
}

// ObserveResolution records how a field was resolved.
func (m *Metrics) ObserveResolution(field, method string) {
	if m != nil {
		m.Resolutions.WithLabelValues(field, method).Inc()
	}
}

// ObserveScan records a completed scan.
func (m *Metrics) ObserveScan(verdict string, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(verdict).Inc()
	m.AttemptsPerScan.Observe(float64(attempts))
	m.ScanLatency.Observe(d.Seconds())
}
