package flowcontrol

import (
	"fmt"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
)

type connectionFlowController struct {
	baseFlowController

	logger utils.Logger
}

var _ ConnectionFlowController = &connectionFlowController{}

// NewConnectionFlowController gets a new flow controller for the connection.
func NewConnectionFlowController(
	receiveWindow protocol.ByteCount,
	logger utils.Logger,
) ConnectionFlowController {
	return &connectionFlowController{
		logger: logger,
		baseFlowController: baseFlowController{
			receiveWindowSize: receiveWindow,
			receiveWindow:     receiveWindow,
		},
	}
}

// IncrementHighestReceived adds an increment to the highestReceived value.
// Stream-level flow controllers report the increments they observe.
func (c *connectionFlowController) IncrementHighestReceived(increment protocol.ByteCount) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.highestReceived += increment
	if c.checkFlowControlViolation() {
		return fmt.Errorf("%w on the connection: received %d bytes, allowed %d bytes", ErrFlowControlViolation, c.highestReceived, c.receiveWindow)
	}
	return nil
}

func (c *connectionFlowController) GetWindowUpdate() protocol.ByteCount {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	offset := c.getWindowUpdate()
	if offset != 0 && c.logger.Debug() {
		c.logger.Debugf("Increasing receive flow control window for the connection to %d kB", offset/(1<<10))
	}
	return offset
}
