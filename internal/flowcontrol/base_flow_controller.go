package flowcontrol

import (
	"errors"
	"sync"

	"github.com/wisp-transport/wisp/internal/protocol"
)

// ErrFlowControlViolation occurs when the peer sends more data than the
// advertised limit allows.
var ErrFlowControlViolation = errors.New("flow control violation")

type baseFlowController struct {
	mutex sync.Mutex

	bytesRead       protocol.ByteCount
	highestReceived protocol.ByteCount

	receiveWindowSize protocol.ByteCount // the initial window, also the distance kept to bytesRead
	receiveWindow     protocol.ByteCount // the limit last advertised to the peer
}

func (c *baseFlowController) AddBytesRead(n protocol.ByteCount) {
	c.mutex.Lock()
	c.bytesRead += n
	c.mutex.Unlock()
}

// getWindowUpdate computes the new limit and returns it once the distance to
// the last advertised limit exceeds the update fraction of the window size.
// Callers must hold the mutex.
func (c *baseFlowController) getWindowUpdate() protocol.ByteCount {
	newWindow := c.bytesRead + c.receiveWindowSize
	if newWindow-c.receiveWindow <= protocol.ByteCount(float64(c.receiveWindowSize)*protocol.WindowUpdateFraction) {
		return 0
	}
	c.receiveWindow = newWindow
	return newWindow
}

// checkFlowControlViolation must be called with the mutex held.
func (c *baseFlowController) checkFlowControlViolation() bool {
	return c.highestReceived > c.receiveWindow
}
