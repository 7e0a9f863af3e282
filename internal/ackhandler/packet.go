package ackhandler

import (
	"fmt"
	"time"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/wire"
)

// A PacketID identifies a sent packet: packet numbers are only unique within
// their encryption level.
type PacketID struct {
	EncryptionLevel protocol.EncryptionLevel
	PacketNumber    protocol.PacketNumber
}

func (id PacketID) String() string {
	return fmt.Sprintf("%s/%d", id.EncryptionLevel, id.PacketNumber)
}

// Less orders packet IDs lexicographically, for statistics reporting.
func (id PacketID) Less(other PacketID) bool {
	if id.EncryptionLevel != other.EncryptionLevel {
		return id.EncryptionLevel < other.EncryptionLevel
	}
	return id.PacketNumber < other.PacketNumber
}

// A Packet is a sent packet. The packet number is assigned when the packet is
// serialized, right before it is handed to the datagram sink.
type Packet struct {
	PacketNumber    protocol.PacketNumber
	EncryptionLevel protocol.EncryptionLevel
	Frames          []Frame
	Length          protocol.ByteCount
	SendTime        time.Time
}

// ID returns the packet's identifier.
func (p *Packet) ID() PacketID {
	return PacketID{EncryptionLevel: p.EncryptionLevel, PacketNumber: p.PacketNumber}
}

// IsCrypto reports whether the packet carries a CRYPTO frame.
func (p *Packet) IsCrypto() bool {
	for _, f := range p.Frames {
		if _, ok := f.Frame.(*wire.CryptoFrame); ok {
			return true
		}
	}
	return false
}

// IsAckEliciting reports whether the packet needs to be acknowledged.
func (p *Packet) IsAckEliciting() bool {
	return HasAckElicitingFrames(p.Frames)
}

// Copy returns a deep copy carrying the same frames. The copy has no packet
// number assigned; a retransmission is sent under a fresh number.
func (p *Packet) Copy() *Packet {
	frames := make([]Frame, len(p.Frames))
	copy(frames, p.Frames)
	return &Packet{
		EncryptionLevel: p.EncryptionLevel,
		Frames:          frames,
		Length:          p.Length,
	}
}
