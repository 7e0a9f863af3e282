package flowcontrol

import (
	"fmt"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
)

type streamFlowController struct {
	baseFlowController

	streamID protocol.StreamID
	logger   utils.Logger
}

var _ StreamFlowController = &streamFlowController{}

// NewStreamFlowController gets a new flow controller for a stream.
func NewStreamFlowController(
	streamID protocol.StreamID,
	receiveWindow protocol.ByteCount,
	logger utils.Logger,
) StreamFlowController {
	return &streamFlowController{
		streamID: streamID,
		logger:   logger,
		baseFlowController: baseFlowController{
			receiveWindowSize: receiveWindow,
			receiveWindow:     receiveWindow,
		},
	}
}

// UpdateHighestReceived updates the highestReceived value, if the offset is
// higher. Frames received out of order carry offsets below the highest and
// contribute no increment.
func (c *streamFlowController) UpdateHighestReceived(offset protocol.ByteCount) (protocol.ByteCount, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if offset <= c.highestReceived {
		return 0, nil
	}
	increment := offset - c.highestReceived
	c.highestReceived = offset
	if c.checkFlowControlViolation() {
		return 0, fmt.Errorf("%w on stream %d: received %d bytes, allowed %d bytes", ErrFlowControlViolation, c.streamID, offset, c.receiveWindow)
	}
	return increment, nil
}

func (c *streamFlowController) GetWindowUpdate() protocol.ByteCount {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	offset := c.getWindowUpdate()
	if offset != 0 && c.logger.Debug() {
		c.logger.Debugf("Increasing receive flow control window for stream %d to %d kB", c.streamID, offset/(1<<10))
	}
	return offset
}
