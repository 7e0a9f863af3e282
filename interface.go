package wisp

import (
	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/wire"
)

// A StreamID is a QUIC stream ID.
type StreamID = protocol.StreamID

// A ByteCount is a count of bytes.
type ByteCount = protocol.ByteCount

// A DatagramSink consumes assembled, protected packets.
// Write is called from the send task; an error is fatal to the connection.
type DatagramSink interface {
	Write(b []byte) error
}

// A FrameProducer materializes a frame just before packet assembly.
// maxFrameSize is the number of bytes still available in the packet.
// Returning nil withdraws the request, e.g. when the data was already
// sent by an earlier callback.
type FrameProducer func(maxFrameSize protocol.ByteCount) wire.Frame

// A SendTracer is notified about packet-level events on the send path.
type SendTracer interface {
	SentPacket(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber, size protocol.ByteCount, isRetransmission bool)
	AckedPacket(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber)
	UpdatedMetrics(bytesInFlight, congestionWindow protocol.ByteCount)
}
