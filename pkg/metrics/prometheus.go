package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	channelUp         *prometheus.GaugeVec
	snapshots         *prometheus.CounterVec
	recordsDropped    prometheus.Counter
	renderOps         *prometheus.CounterVec
	renderDropped     *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	patternsSubmitted prometheus.Counter
	lastClose         *prometheus.GaugeVec
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		channelUp: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "delphi_channel_up",
				Help: "Connectivity state per backend channel (1 connected, 0 disconnected)",
			},
			[]string{"channel"},
		),
		snapshots: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_snapshots_total",
				Help: "Ticker snapshots by outcome (applied, stale, invalid, suppressed)",
			},
			[]string{"outcome"},
		),
		recordsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "delphi_records_dropped_total",
				Help: "Raw candle records dropped during normalization",
			},
		),
		renderOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_render_ops_total",
				Help: "Render operations issued to the renderer by kind (draw, patch)",
			},
			[]string{"kind"},
		),
		renderDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_render_dropped_total",
				Help: "Render operations dropped by the in-flight guard",
			},
			[]string{"kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		patternsSubmitted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "delphi_patterns_submitted_total",
				Help: "Labeled pattern windows submitted on the training channel",
			},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "delphi_last_close",
				Help: "Last close price seen for a ticker",
			},
			[]string{"ticker"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delphi_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordChannelState records connectivity for a channel.
func (r *Recorder) RecordChannelState(channel string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	r.channelUp.WithLabelValues(channel).Set(v)
}

// RecordSnapshot records a snapshot outcome.
func (r *Recorder) RecordSnapshot(outcome string) {
	r.snapshots.WithLabelValues(outcome).Inc()
}

// RecordRecordsDropped records n candle records dropped by the normalizer.
func (r *Recorder) RecordRecordsDropped(n int) {
	r.recordsDropped.Add(float64(n))
}

// RecordRenderOp records an issued draw or patch.
func (r *Recorder) RecordRenderOp(kind string) {
	r.renderOps.WithLabelValues(kind).Inc()
}

// RecordRenderDropped records a draw or patch rejected by the guard.
func (r *Recorder) RecordRenderDropped(kind string) {
	r.renderDropped.WithLabelValues(kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordPatternsSubmitted records submitted pattern windows.
func (r *Recorder) RecordPatternsSubmitted(n int) {
	r.patternsSubmitted.Add(float64(n))
}

// RecordLastClose records the latest close price for a ticker.
func (r *Recorder) RecordLastClose(ticker string, close float64) {
	r.lastClose.WithLabelValues(ticker).Set(close)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
