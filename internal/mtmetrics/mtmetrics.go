// Package mtmetrics provides Prometheus metrics for the MTProto session
// core: handshake timings, key-exchange factorization cost, wire-frame
// pack/unpack counters, and server-driven salt/time corrections.
package mtmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mtproto_session"

// Metrics holds every Prometheus collector the session core reports.
type Metrics struct {
	// Key exchange
	HandshakesTotal      prometheus.Counter
	HandshakeErrors      *prometheus.CounterVec
	HandshakeLatency     prometheus.Histogram
	FactorizationRetries prometheus.Histogram
	FactorizationFailed  prometheus.Counter

	// Wire frames
	FramesPacked       prometheus.Counter
	FramesUnpacked     prometheus.Counter
	FrameDecodeErrors  *prometheus.CounterVec
	BytesSent          prometheus.Counter
	BytesReceived      prometheus.Counter

	// Session corrections
	SaltCorrections      *prometheus.CounterVec
	TimeOffsetCorrections prometheus.Counter
	SessionsReopened     prometheus.Counter

	// Carriers
	CarrierDialsTotal  *prometheus.CounterVec
	CarrierDialErrors  *prometheus.CounterVec
	CarriersActive     prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide Metrics instance, registered against
// prometheus.DefaultRegisterer on first use.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics registers a new Metrics instance against the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers a new Metrics instance against reg,
// useful for tests that want an isolated registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HandshakesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Total number of completed key-exchange handshakes",
		}),
		HandshakeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_errors_total",
			Help:      "Total handshake failures by error type",
		}, []string{"error_type"}),
		HandshakeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_latency_seconds",
			Help:      "Histogram of handshake duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		FactorizationRetries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "factorization_restarts",
			Help:      "Number of Pollard rho restarts needed to factor pq per handshake",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		}),
		FactorizationFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factorization_failed_total",
			Help:      "Total handshakes abandoned after exhausting the factorization restart budget",
		}),

		FramesPacked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_packed_total",
			Help:      "Total encrypted wire frames packed",
		}),
		FramesUnpacked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_unpacked_total",
			Help:      "Total encrypted wire frames unpacked",
		}),
		FrameDecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_decode_errors_total",
			Help:      "Total frame decode failures by reason",
		}, []string{"reason"}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total wire bytes sent",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total wire bytes received",
		}),

		SaltCorrections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "salt_corrections_total",
			Help:      "Total server-driven salt corrections by source constructor",
		}, []string{"source"}),
		TimeOffsetCorrections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "time_offset_corrections_total",
			Help:      "Total time_offset corrections applied from bad_msg_notification",
		}),
		SessionsReopened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reopened_total",
			Help:      "Total sessions torn down after an unrecoverable bad_msg_notification",
		}),

		CarrierDialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carrier_dials_total",
			Help:      "Total carrier dial attempts by transport kind",
		}, []string{"kind"}),
		CarrierDialErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carrier_dial_errors_total",
			Help:      "Total carrier dial failures by transport kind",
		}, []string{"kind"}),
		CarriersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "carriers_active",
			Help:      "Number of currently connected carriers",
		}),
	}
}

// RecordHandshake records a successful handshake and its restart count.
func (m *Metrics) RecordHandshake(latencySeconds float64, restarts int) {
	m.HandshakesTotal.Inc()
	m.HandshakeLatency.Observe(latencySeconds)
	m.FactorizationRetries.Observe(float64(restarts))
}

// RecordHandshakeError records a failed handshake.
func (m *Metrics) RecordHandshakeError(errorType string) {
	m.HandshakeErrors.WithLabelValues(errorType).Inc()
}

// RecordFactorizationFailed records an exhausted factorization budget.
func (m *Metrics) RecordFactorizationFailed() {
	m.FactorizationFailed.Inc()
}

// RecordFramePacked records one packed outgoing frame of n bytes.
func (m *Metrics) RecordFramePacked(n int) {
	m.FramesPacked.Inc()
	m.BytesSent.Add(float64(n))
}

// RecordFrameUnpacked records one unpacked incoming frame of n bytes.
func (m *Metrics) RecordFrameUnpacked(n int) {
	m.FramesUnpacked.Inc()
	m.BytesReceived.Add(float64(n))
}

// RecordFrameDecodeError records a frame that failed to decode.
func (m *Metrics) RecordFrameDecodeError(reason string) {
	m.FrameDecodeErrors.WithLabelValues(reason).Inc()
}

// RecordSaltCorrection records a salt update from the given source
// constructor ("bad_server_salt" or "new_session_created").
func (m *Metrics) RecordSaltCorrection(source string) {
	m.SaltCorrections.WithLabelValues(source).Inc()
}

// RecordTimeOffsetCorrection records a bad_msg_notification-driven
// time_offset adjustment.
func (m *Metrics) RecordTimeOffsetCorrection() {
	m.TimeOffsetCorrections.Inc()
}

// RecordSessionReopened records a session torn down after an
// unrecoverable bad_msg_notification.
func (m *Metrics) RecordSessionReopened() {
	m.SessionsReopened.Inc()
}

// RecordCarrierDial records a carrier dial attempt for the given
// transport kind.
func (m *Metrics) RecordCarrierDial(kind string) {
	m.CarrierDialsTotal.WithLabelValues(kind).Inc()
}

// RecordCarrierDialError records a failed carrier dial.
func (m *Metrics) RecordCarrierDialError(kind string) {
	m.CarrierDialErrors.WithLabelValues(kind).Inc()
}

// RecordCarrierConnected increments the active carrier gauge.
func (m *Metrics) RecordCarrierConnected() {
	m.CarriersActive.Inc()
}

// RecordCarrierDisconnected decrements the active carrier gauge.
func (m *Metrics) RecordCarrierDisconnected() {
	m.CarriersActive.Dec()
}
