package wisp

import (
	"errors"
	"fmt"

	"github.com/wisp-transport/wisp/internal/ackhandler"
	"github.com/wisp-transport/wisp/internal/handshake"
	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/wire"
)

var errNothingToPack = errors.New("nothing to pack")

type sealer interface {
	GetSealer(protocol.EncryptionLevel) (handshake.Sealer, error)
}

type packetPacker struct {
	srcConnID  protocol.ConnectionID
	destConnID protocol.ConnectionID
	version    protocol.Version

	perspective protocol.Perspective
	cryptoSetup sealer

	token []byte

	maxPacketSize protocol.ByteCount
}

func newPacketPacker(
	srcConnID, destConnID protocol.ConnectionID,
	version protocol.Version,
	cryptoSetup sealer,
	maxPacketSize protocol.ByteCount,
	perspective protocol.Perspective,
) *packetPacker {
	return &packetPacker{
		srcConnID:     srcConnID,
		destConnID:    destConnID,
		version:       version,
		perspective:   perspective,
		cryptoSetup:   cryptoSetup,
		maxPacketSize: maxPacketSize,
	}
}

// SetToken sets the token to use in the header of Initial packets.
func (p *packetPacker) SetToken(token []byte) { p.token = token }

// ChangeDestConnectionID changes the destination connection ID used for
// all subsequently packed packets.
func (p *packetPacker) ChangeDestConnectionID(connID protocol.ConnectionID) {
	p.destConnID = connID
}

func (p *packetPacker) longHeader(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber) *wire.ExtendedHeader {
	hdr := &wire.ExtendedHeader{
		PacketNumber:    pn,
		PacketNumberLen: protocol.PacketNumberLen4,
	}
	hdr.DestConnectionID = p.destConnID
	hdr.SrcConnectionID = p.srcConnID
	hdr.Version = p.version
	switch encLevel {
	case protocol.EncryptionInitial:
		hdr.Type = protocol.PacketTypeInitial
		hdr.Token = p.token
	case protocol.EncryptionHandshake:
		hdr.Type = protocol.PacketTypeHandshake
	}
	return hdr
}

// HeaderOverhead returns the number of bytes of a packet at this encryption
// level not available to frames: the header plus the AEAD overhead.
func (p *packetPacker) HeaderOverhead(encLevel protocol.EncryptionLevel) protocol.ByteCount {
	var hdrLen protocol.ByteCount
	if encLevel == protocol.Encryption1RTT {
		hdrLen = wire.ShortHeaderLen(p.destConnID, protocol.PacketNumberLen4)
	} else {
		hdrLen = p.longHeader(encLevel, 0).GetLength(p.version)
	}
	return hdrLen + protocol.ByteCount(handshake.AEADOverhead)
}

// MaxPayloadSize returns the frame budget of a packet at this encryption level.
func (p *packetPacker) MaxPayloadSize(encLevel protocol.EncryptionLevel) protocol.ByteCount {
	return p.maxPacketSize - p.HeaderOverhead(encLevel)
}

// PackPacket assembles, seals and header-protects a single packet.
// If minSize is larger than the size the frames produce, the payload is
// padded before sealing. The Initial packets of a client are always
// padded so that the datagram reaches the minimum size the peer accepts.
func (p *packetPacker) PackPacket(
	encLevel protocol.EncryptionLevel,
	pn protocol.PacketNumber,
	frames []ackhandler.Frame,
	minSize protocol.ByteCount,
) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errNothingToPack
	}
	sealer, err := p.cryptoSetup.GetSealer(encLevel)
	if err != nil {
		return nil, err
	}
	if encLevel == protocol.EncryptionInitial && p.perspective == protocol.PerspectiveClient {
		minSize = max(minSize, protocol.MinInitialPacketSize)
	}

	payload := make([]byte, 0, p.maxPacketSize)
	for _, f := range frames {
		payload, err = f.Frame.Append(payload, p.version)
		if err != nil {
			return nil, err
		}
	}

	overhead := protocol.ByteCount(sealer.Overhead())
	var hdrLen protocol.ByteCount
	var hdr *wire.ExtendedHeader
	if encLevel == protocol.Encryption1RTT {
		hdrLen = wire.ShortHeaderLen(p.destConnID, protocol.PacketNumberLen4)
	} else {
		hdr = p.longHeader(encLevel, pn)
		hdrLen = hdr.GetLength(p.version)
	}
	if size := hdrLen + protocol.ByteCount(len(payload)) + overhead; size < minSize {
		payload = append(payload, make([]byte, minSize-size)...)
	}
	if hdrLen+protocol.ByteCount(len(payload))+overhead > p.maxPacketSize {
		return nil, fmt.Errorf("packet too large: %d bytes", hdrLen+protocol.ByteCount(len(payload))+overhead)
	}

	raw := make([]byte, 0, p.maxPacketSize)
	if hdr != nil {
		hdr.Length = protocol.ByteCount(hdr.PacketNumberLen) + protocol.ByteCount(len(payload)) + overhead
		raw, err = hdr.Append(raw, p.version)
		if err != nil {
			return nil, err
		}
	} else {
		raw, err = wire.AppendShortHeader(raw, p.destConnID, pn, protocol.PacketNumberLen4)
		if err != nil {
			return nil, err
		}
	}
	payloadOffset := len(raw)
	sealed := sealer.Seal(raw[payloadOffset:payloadOffset], payload, pn, raw)
	raw = raw[:payloadOffset+len(sealed)]

	pnOffset := payloadOffset - int(protocol.PacketNumberLen4)
	sealer.EncryptHeader(
		raw[pnOffset+4:pnOffset+4+handshake.HeaderProtectionSampleSize],
		&raw[0],
		raw[pnOffset:payloadOffset],
	)
	return raw, nil
}
