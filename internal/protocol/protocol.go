package protocol

import (
	"fmt"
	"time"
)

// A PacketNumber in QUIC
type PacketNumber int64

// InvalidPacketNumber is a packet number that is never used.
// In QUIC, 0 is a valid packet number.
const InvalidPacketNumber PacketNumber = -1

// A ByteCount in QUIC
type ByteCount int64

// MaxByteCount is the maximum value of a ByteCount
const MaxByteCount = ByteCount(1<<62 - 1)

// An ApplicationErrorCode is an application-defined error code.
type ApplicationErrorCode uint16

// MaxPacketBufferSize maximum packet size of any QUIC packet, based on
// ethernet's max size, minus the IP and UDP headers. IPv6 has a 40 byte header,
// UDP adds an additional 8 bytes. This is a total overhead of 48 bytes.
const MaxPacketBufferSize ByteCount = 1452

// MinInitialPacketSize is the minimum size an Initial packet is required to have.
const MinInitialPacketSize ByteCount = 1200

// TimerGranularity is the granularity of loss and retransmission timers.
const TimerGranularity = time.Millisecond

// A PacketID identifies a packet within a connection: the encryption level
// partitions the packet number space, the number identifies the packet
// within its space.
type PacketID struct {
	EncryptionLevel EncryptionLevel
	PacketNumber    PacketNumber
}

// Less orders packet IDs lexicographically by (level, packet number).
// The ordering is only used for diagnostic reporting.
func (p PacketID) Less(other PacketID) bool {
	if p.EncryptionLevel != other.EncryptionLevel {
		return p.EncryptionLevel < other.EncryptionLevel
	}
	return p.PacketNumber < other.PacketNumber
}

func (p PacketID) String() string {
	return fmt.Sprintf("%s/%d", p.EncryptionLevel, p.PacketNumber)
}
