package pkg_metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the relay
type Metrics struct {
	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsOpened  prometheus.Counter
	SessionsClosed  *prometheus.CounterVec
	BufferOverflows prometheus.Counter

	// Frame metrics
	FramesReceived  prometheus.Counter
	BytesReceived   prometheus.Counter
	IgnoredMessages prometheus.Counter

	// Transcription metrics
	Utterances            prometheus.Counter
	UtteranceBytes        prometheus.Histogram
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram
	TranscriptionSegments prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_sessions",
			Help: "Current number of open websocket sessions",
		}),
		SessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_sessions_opened_total",
			Help: "Total number of websocket sessions accepted",
		}),
		SessionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_sessions_closed_total",
			Help: "Total number of sessions closed, by reason",
		}, []string{"reason"}),
		BufferOverflows: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_buffer_overflows_total",
			Help: "Total number of sessions closed for exceeding the utterance size limit",
		}),

		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_frames_received_total",
			Help: "Total number of binary audio frames received",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_bytes_received_total",
			Help: "Total number of audio bytes received",
		}),
		IgnoredMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_ignored_messages_total",
			Help: "Total number of text messages that were not the end marker",
		}),

		Utterances: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_utterances_total",
			Help: "Total number of utterances handed to the transcription engine",
		}),
		UtteranceBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_utterance_bytes",
			Help:    "Size of each utterance in bytes",
			Buckets: prometheus.ExponentialBuckets(4096, 4, 8),
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_transcription_failures_total",
			Help: "Total number of failed transcriptions",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_transcription_duration_seconds",
			Help:    "Time spent waiting for the transcription engine",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}),
		TranscriptionSegments: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_transcription_segments",
			Help:    "Number of segments returned per utterance",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}
}
