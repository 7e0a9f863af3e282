package qlog

import (
	"time"

	"github.com/francoispqt/gojay"

	"github.com/wisp-transport/wisp/internal/protocol"
)

var eventFields = [4]string{"relative_time", "category", "event", "data"}

func milliseconds(dur time.Duration) float64 { return float64(dur.Nanoseconds()) / 1e6 }

type eventDetails interface {
	Category() category
	Name() string
	gojay.MarshalerJSONObject
}

type event struct {
	RelativeTime time.Duration
	eventDetails
}

var _ gojay.MarshalerJSONArray = event{}

func (e event) IsNil() bool { return false }
func (e event) MarshalJSONArray(enc *gojay.Encoder) {
	enc.Float64(milliseconds(e.RelativeTime))
	enc.String(e.Category().String())
	enc.String(e.Name())
	enc.Object(e.eventDetails)
}

type events []event

var _ gojay.MarshalerJSONArray = events{}

func (e events) IsNil() bool { return e == nil }
func (e events) MarshalJSONArray(enc *gojay.Encoder) {
	for _, ev := range e {
		enc.Array(ev)
	}
}

type eventPacketSent struct {
	PacketType     packetType
	PacketNumber   protocol.PacketNumber
	PacketSize     protocol.ByteCount
	Retransmission bool
}

var _ eventDetails = eventPacketSent{}

func (e eventPacketSent) Category() category { return categoryTransport }
func (e eventPacketSent) Name() string       { return "packet_sent" }
func (e eventPacketSent) IsNil() bool        { return false }

func (e eventPacketSent) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("packet_type", e.PacketType.String())
	enc.Int64Key("packet_number", int64(e.PacketNumber))
	enc.Uint64Key("packet_size", uint64(e.PacketSize))
	if e.Retransmission {
		enc.StringKey("trigger", "retransmit_timeout")
	}
}

type eventPacketAcked struct {
	PacketType   packetType
	PacketNumber protocol.PacketNumber
}

var _ eventDetails = eventPacketAcked{}

func (e eventPacketAcked) Category() category { return categoryRecovery }
func (e eventPacketAcked) Name() string       { return "packet_acked" }
func (e eventPacketAcked) IsNil() bool        { return false }

func (e eventPacketAcked) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("packet_type", e.PacketType.String())
	enc.Int64Key("packet_number", int64(e.PacketNumber))
}

type eventMetricsUpdated struct {
	BytesInFlight    protocol.ByteCount
	CongestionWindow protocol.ByteCount
}

var _ eventDetails = eventMetricsUpdated{}

func (e eventMetricsUpdated) Category() category { return categoryRecovery }
func (e eventMetricsUpdated) Name() string       { return "metrics_updated" }
func (e eventMetricsUpdated) IsNil() bool        { return false }

func (e eventMetricsUpdated) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("bytes_in_flight", uint64(e.BytesInFlight))
	enc.Uint64Key("congestion_window", uint64(e.CongestionWindow))
}
