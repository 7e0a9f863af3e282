package ackhandler

import "github.com/wisp-transport/wisp/internal/wire"

// A Frame is a frame together with the callbacks that fire when the packet
// carrying it is acknowledged or declared lost.
type Frame struct {
	wire.Frame

	OnLost  func(wire.Frame)
	OnAcked func(wire.Frame)
}
