package qlog

import (
	"fmt"

	"github.com/wisp-transport/wisp/internal/protocol"
)

type connectionID protocol.ConnectionID

func (c connectionID) String() string {
	return fmt.Sprintf("%x", []byte(c))
}

// category is the qlog event category.
type category uint8

const (
	categoryTransport category = iota
	categoryRecovery
)

func (c category) String() string {
	switch c {
	case categoryTransport:
		return "transport"
	case categoryRecovery:
		return "recovery"
	default:
		panic("unknown category")
	}
}

type packetType uint8

const (
	packetTypeInitial packetType = iota
	packetTypeHandshake
	packetType1RTT
)

func (t packetType) String() string {
	switch t {
	case packetTypeInitial:
		return "initial"
	case packetTypeHandshake:
		return "handshake"
	case packetType1RTT:
		return "1RTT"
	default:
		panic("unknown packet type")
	}
}

func getPacketTypeFromEncryptionLevel(encLevel protocol.EncryptionLevel) packetType {
	switch encLevel {
	case protocol.EncryptionInitial:
		return packetTypeInitial
	case protocol.EncryptionHandshake:
		return packetTypeHandshake
	case protocol.Encryption1RTT:
		return packetType1RTT
	default:
		panic("unknown encryption level")
	}
}
