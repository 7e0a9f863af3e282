package congestion

import (
	"time"

	"github.com/wisp-transport/wisp/internal/protocol"
)

// A SendAlgorithm performs congestion control.
// The send loop asks CanSend before serializing a packet and blocks in
// WaitForUpdate when the answer is no.
type SendAlgorithm interface {
	// CanSend reports whether another bytes-sized packet fits under the
	// congestion window.
	CanSend(bytes protocol.ByteCount) bool
	// OnPacketSent registers a packet as in flight.
	OnPacketSent(bytes protocol.ByteCount)
	// OnPacketAcked removes a packet from the in-flight accounting and may
	// grow the window.
	OnPacketAcked(bytes protocol.ByteCount)
	// OnPacketLost removes a packet from the in-flight accounting and may
	// shrink the window.
	OnPacketLost(bytes protocol.ByteCount)
	// WaitForUpdate blocks until an ack or loss changed the in-flight
	// accounting, or until the deadline elapses.
	WaitForUpdate(deadline time.Time)

	GetCongestionWindow() protocol.ByteCount
	BytesInFlight() protocol.ByteCount
	InSlowStart() bool
}
