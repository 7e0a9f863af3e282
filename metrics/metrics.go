// Package metrics exposes the send path's packet counters and recovery state
// as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wisp-transport/wisp/internal/protocol"
)

const metricNamespace = "wisp"

var (
	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "packets_sent_total",
			Help:      "Packets handed to the datagram sink",
		},
		[]string{"encryption_level"},
	)
	packetsRetransmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "packets_retransmitted_total",
			Help:      "Crypto packets sent again after their retransmission timer fired",
		},
		[]string{"encryption_level"},
	)
	packetsAcked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "packets_acked_total",
			Help:      "Packets acknowledged by the peer",
		},
		[]string{"encryption_level"},
	)
	bytesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "sent_bytes_total",
			Help:      "Bytes handed to the datagram sink",
		},
	)
	bytesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "bytes_in_flight",
			Help:      "Bytes sent but not yet acknowledged",
		},
	)
	congestionWindow = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "congestion_window_bytes",
			Help:      "Current congestion window",
		},
	)
)

// A Tracer records send path events as Prometheus metrics.
// It is safe for concurrent use and can be shared between connections.
type Tracer struct{}

// NewTracer creates a Tracer registered with the default registerer.
func NewTracer() *Tracer {
	return NewTracerWithRegisterer(prometheus.DefaultRegisterer)
}

// NewTracerWithRegisterer creates a Tracer registered with a given registerer.
func NewTracerWithRegisterer(registerer prometheus.Registerer) *Tracer {
	for _, c := range [...]prometheus.Collector{
		packetsSent,
		packetsRetransmitted,
		packetsAcked,
		bytesSent,
		bytesInFlight,
		congestionWindow,
	} {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
	return &Tracer{}
}

// SentPacket counts a sent packet.
func (t *Tracer) SentPacket(encLevel protocol.EncryptionLevel, _ protocol.PacketNumber, size protocol.ByteCount, isRetransmission bool) {
	packetsSent.WithLabelValues(encLevel.String()).Inc()
	bytesSent.Add(float64(size))
	if isRetransmission {
		packetsRetransmitted.WithLabelValues(encLevel.String()).Inc()
	}
}

// AckedPacket counts an acknowledged packet.
func (t *Tracer) AckedPacket(encLevel protocol.EncryptionLevel, _ protocol.PacketNumber) {
	packetsAcked.WithLabelValues(encLevel.String()).Inc()
}

// UpdatedMetrics records the recovery state.
func (t *Tracer) UpdatedMetrics(inFlight, cwnd protocol.ByteCount) {
	bytesInFlight.Set(float64(inFlight))
	congestionWindow.Set(float64(cwnd))
}
