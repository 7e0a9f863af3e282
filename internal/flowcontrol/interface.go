package flowcontrol

import "github.com/wisp-transport/wisp/internal/protocol"

type flowController interface {
	// AddBytesRead is called as the application consumes data.
	AddBytesRead(n protocol.ByteCount)
	// GetWindowUpdate returns the new limit to advertise, or 0 if no update
	// is due yet. Updates become due once enough of the window has been
	// consumed since the last advertisement.
	GetWindowUpdate() protocol.ByteCount
}

// A StreamFlowController does flow control for a single stream.
type StreamFlowController interface {
	flowController
	// UpdateHighestReceived is called for every received STREAM frame.
	// It returns the number of bytes by which the highest offset advanced,
	// so that the caller can account them at the connection level.
	UpdateHighestReceived(offset protocol.ByteCount) (protocol.ByteCount, error)
}

// The ConnectionFlowController does flow control for the connection as a
// whole, aggregated over all streams.
type ConnectionFlowController interface {
	flowController
	// IncrementHighestReceived is called with the stream-level increments.
	IncrementHighestReceived(increment protocol.ByteCount) error
}
