package ackhandler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/wisp-transport/wisp/internal/utils"
)

type cryptoRetransmission struct {
	id       PacketID
	deadline time.Time
}

// retransmissionQueue is a min-heap ordered by deadline.
type retransmissionQueue []*cryptoRetransmission

func (q retransmissionQueue) Len() int            { return len(q) }
func (q retransmissionQueue) Less(i, j int) bool  { return q[i].deadline.Before(q[j].deadline) }
func (q retransmissionQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *retransmissionQueue) Push(x interface{}) { *q = append(*q, x.(*cryptoRetransmission)) }
func (q *retransmissionQueue) Pop() interface{} {
	old := *q
	entry := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return entry
}

// The RetransmissionScheduler arms a timer for every sent crypto packet.
// When the timer fires and the packet is still neither acked nor resent, a
// copy is handed back to the send queue. The timeout doubles with every
// failed retry; the counter is shared across all crypto packets and reset
// once nothing crypto is in flight anymore.
type RetransmissionScheduler struct {
	mutex sync.Mutex
	queue retransmissionQueue

	log        *SentPacketLog
	rttStats   *utils.RTTStats
	retransmit func(p *Packet, logMessage string)
	logger     utils.Logger

	failedRetries int

	wakeup    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewRetransmissionScheduler creates a scheduler and starts its dispatcher.
// The retransmit callback re-enqueues a packet copy with the send loop; a
// fresh packet number is assigned when the copy is dequeued.
func NewRetransmissionScheduler(
	log *SentPacketLog,
	rttStats *utils.RTTStats,
	retransmit func(p *Packet, logMessage string),
	logger utils.Logger,
) *RetransmissionScheduler {
	s := &RetransmissionScheduler{
		log:        log,
		rttStats:   rttStats,
		retransmit: retransmit,
		logger:     logger,
		wakeup:     make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}
	go s.run()
	return s
}

// SchedulePacket arms the retransmission timer for a crypto packet that was
// just sent.
func (s *RetransmissionScheduler) SchedulePacket(id PacketID) {
	s.mutex.Lock()
	timeout := s.cryptoTimeout()
	heap.Push(&s.queue, &cryptoRetransmission{id: id, deadline: time.Now().Add(timeout)})
	s.mutex.Unlock()
	if s.logger.Debug() {
		s.logger.Debugf("Scheduled retransmission check for %s in %s", id, timeout)
	}
	s.signal()
}

// cryptoTimeout is 2 * smoothed RTT, doubled for every failed retry.
// Callers must hold the mutex.
func (s *RetransmissionScheduler) cryptoTimeout() time.Duration {
	rtt := s.rttStats.SmoothedRTT().Milliseconds()
	return time.Duration(2*rtt<<s.failedRetries) * time.Millisecond
}

// ResetFailedRetries resets the backoff counter.
// Called when the last crypto packet in flight is acknowledged.
func (s *RetransmissionScheduler) ResetFailedRetries() {
	s.mutex.Lock()
	s.failedRetries = 0
	s.mutex.Unlock()
}

// FailedRetries returns the current backoff counter.
func (s *RetransmissionScheduler) FailedRetries() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.failedRetries
}

// Close stops the dispatcher. Pending timers are discarded.
func (s *RetransmissionScheduler) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *RetransmissionScheduler) signal() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

func (s *RetransmissionScheduler) run() {
	timer := utils.NewTimer()
	defer timer.Stop()
	for {
		s.mutex.Lock()
		var deadline time.Time
		if len(s.queue) > 0 {
			deadline = s.queue[0].deadline
		}
		s.mutex.Unlock()

		if deadline.IsZero() {
			select {
			case <-s.wakeup:
				continue
			case <-s.closed:
				return
			}
		}

		timer.Reset(deadline)
		select {
		case <-timer.Chan():
			timer.SetRead()
			s.onTimer()
		case <-s.wakeup:
		case <-s.closed:
			return
		}
	}
}

func (s *RetransmissionScheduler) onTimer() {
	now := time.Now()
	for {
		s.mutex.Lock()
		if len(s.queue) == 0 || s.queue[0].deadline.After(now) {
			s.mutex.Unlock()
			return
		}
		entry := heap.Pop(&s.queue).(*cryptoRetransmission)
		s.mutex.Unlock()
		s.checkIsAcked(entry.id)
	}
}

// checkIsAcked retransmits the packet if the handshake still has crypto data
// in flight and the packet's record shows it neither acked nor resent.
// An acked record makes the fire a no-op.
func (s *RetransmissionScheduler) checkIsAcked(id PacketID) {
	if !s.log.PendingCrypto() {
		return
	}
	status, ok := s.log.Get(id)
	if !ok || status.Acked || status.Resent || !status.Packet.IsCrypto() {
		return
	}
	if err := s.log.MarkResent(id); err != nil {
		return
	}
	s.mutex.Lock()
	s.failedRetries++
	s.mutex.Unlock()
	s.logger.Debugf("Packet %s not acked; retransmitting", id)
	s.retransmit(status.Packet.Copy(), "retransmit "+id.String())
}
