package congestion

import (
	"sync"
	"time"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
)

const (
	maxDatagramSize         = protocol.MaxPacketSize
	initialCongestionWindow = protocol.InitialCongestionWindowPackets * maxDatagramSize
	minCongestionWindow     = 2 * maxDatagramSize
)

// renoSender is a NewReno-style congestion controller. The admission
// predicate is bytesInFlight + bytes <= congestionWindow. Every change to the
// in-flight accounting wakes up senders blocked in WaitForUpdate.
type renoSender struct {
	mutex sync.Mutex
	cond  *sync.Cond

	clock    Clock
	rttStats *utils.RTTStats

	bytesInFlight       protocol.ByteCount
	congestionWindow    protocol.ByteCount
	slowStartThreshold  protocol.ByteCount
	maxCongestionWindow protocol.ByteCount

	logger utils.Logger
}

var _ SendAlgorithm = &renoSender{}

// NewRenoSender makes a new Reno sender.
func NewRenoSender(clock Clock, rttStats *utils.RTTStats, maxCongestionWindow protocol.ByteCount, logger utils.Logger) SendAlgorithm {
	c := &renoSender{
		clock:               clock,
		rttStats:            rttStats,
		congestionWindow:    initialCongestionWindow,
		slowStartThreshold:  protocol.MaxByteCount,
		maxCongestionWindow: maxCongestionWindow,
		logger:              logger,
	}
	c.cond = sync.NewCond(&c.mutex)
	return c
}

func (c *renoSender) CanSend(bytes protocol.ByteCount) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.bytesInFlight+bytes <= c.congestionWindow
}

func (c *renoSender) OnPacketSent(bytes protocol.ByteCount) {
	c.mutex.Lock()
	c.bytesInFlight += bytes
	c.mutex.Unlock()
}

func (c *renoSender) OnPacketAcked(bytes protocol.ByteCount) {
	c.mutex.Lock()
	c.bytesInFlight -= bytes
	if c.bytesInFlight < 0 {
		c.bytesInFlight = 0
	}
	c.maybeIncreaseCwnd(bytes)
	c.cond.Broadcast()
	c.mutex.Unlock()
}

func (c *renoSender) OnPacketLost(bytes protocol.ByteCount) {
	c.mutex.Lock()
	c.bytesInFlight -= bytes
	if c.bytesInFlight < 0 {
		c.bytesInFlight = 0
	}
	c.slowStartThreshold = utils.Max(c.congestionWindow/2, minCongestionWindow)
	c.congestionWindow = c.slowStartThreshold
	if c.logger.Debug() {
		c.logger.Debugf("Congestion event. New congestion window: %d bytes", c.congestionWindow)
	}
	c.cond.Broadcast()
	c.mutex.Unlock()
}

// WaitForUpdate blocks until the in-flight accounting changed or the deadline
// elapsed. The deadline keeps the send loop interruptible even if no ack ever
// arrives.
func (c *renoSender) WaitForUpdate(deadline time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.clock.Now().Before(deadline) {
		return
	}
	timer := time.AfterFunc(deadline.Sub(c.clock.Now()), c.cond.Broadcast)
	defer timer.Stop()
	c.cond.Wait()
}

func (c *renoSender) GetCongestionWindow() protocol.ByteCount {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.congestionWindow
}

func (c *renoSender) BytesInFlight() protocol.ByteCount {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.bytesInFlight
}

func (c *renoSender) InSlowStart() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.congestionWindow < c.slowStartThreshold
}

// maybeIncreaseCwnd grows the window: exponentially in slow start, by one
// datagram per window's worth of acks afterwards. Callers must hold the mutex.
func (c *renoSender) maybeIncreaseCwnd(ackedBytes protocol.ByteCount) {
	if c.congestionWindow >= c.maxCongestionWindow {
		return
	}
	if c.congestionWindow < c.slowStartThreshold {
		c.congestionWindow += ackedBytes
	} else {
		c.congestionWindow += maxDatagramSize * ackedBytes / c.congestionWindow
	}
	if c.congestionWindow > c.maxCongestionWindow {
		c.congestionWindow = c.maxCongestionWindow
	}
}
