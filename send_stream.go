package wisp

import (
	"sync"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
	"github.com/wisp-transport/wisp/internal/wire"
)

// A sendStream is the outgoing half of a stream.
// Write buffers data and registers a frame request with the sender; the
// actual STREAM frame is materialized when the send task assembles a packet,
// sized to the space remaining in it.
type sendStream struct {
	streamID protocol.StreamID
	sender   *Sender

	mutex sync.Mutex

	queue      []byte
	nextOffset protocol.ByteCount

	finished bool // Close was called
	finSent  bool
	aborted  bool

	requestPending bool

	logger utils.Logger
}

func newSendStream(streamID protocol.StreamID, sender *Sender, logger utils.Logger) *sendStream {
	return &sendStream{
		streamID: streamID,
		sender:   sender,
		logger:   logger,
	}
}

// Write buffers p and schedules it for sending. It never blocks on the
// network; backpressure comes from the congestion controller in the send
// task.
func (s *sendStream) Write(p []byte) (int, error) {
	s.mutex.Lock()
	if s.finished || s.aborted {
		s.mutex.Unlock()
		return 0, ErrStreamClosed
	}
	s.queue = append(s.queue, p...)
	s.mutex.Unlock()

	if err := s.scheduleSending(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close marks the end of the stream. The FIN bit is set on the last frame,
// or carried by an empty frame if everything was already sent.
func (s *sendStream) Close() error {
	s.mutex.Lock()
	if s.finished {
		s.mutex.Unlock()
		return nil
	}
	s.finished = true
	s.mutex.Unlock()
	return s.scheduleSending()
}

// abort stops sending. Buffered data is discarded.
func (s *sendStream) abort() {
	s.mutex.Lock()
	s.aborted = true
	s.queue = nil
	s.mutex.Unlock()
}

// handleStopSendingFrame aborts the sending side on the peer's request.
func (s *sendStream) handleStopSendingFrame(f *wire.StopSendingFrame) {
	s.abort()
	s.logger.Debugf("Peer sent STOP_SENDING (error code %d) for stream %d", f.ErrorCode, f.StreamID)
}

// scheduleSending registers a frame request with the sender, unless one is
// already outstanding. A single request covers all currently buffered data:
// popStreamFrame re-arms when a packet couldn't fit all of it.
func (s *sendStream) scheduleSending() error {
	s.mutex.Lock()
	if s.requestPending {
		s.mutex.Unlock()
		return nil
	}
	s.requestPending = true
	s.mutex.Unlock()
	return s.sender.Send(protocol.Encryption1RTT, s.popStreamFrame, nil, s.frameLost)
}

// popStreamFrame materializes the next STREAM frame.
// It runs on the send task, with maxFrameSize bytes available in the packet.
func (s *sendStream) popStreamFrame(maxFrameSize protocol.ByteCount) wire.Frame {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.requestPending = false
	if s.aborted {
		return nil
	}
	if len(s.queue) == 0 && !(s.finished && !s.finSent) {
		return nil
	}

	f := &wire.StreamFrame{
		StreamID:       s.streamID,
		Offset:         s.nextOffset,
		DataLenPresent: true,
	}
	maxDataLen := f.MaxDataLen(maxFrameSize, s.sender.version)
	if maxDataLen == 0 && len(s.queue) > 0 {
		s.rearmLocked()
		return nil
	}
	n := min(protocol.ByteCount(len(s.queue)), maxDataLen)
	f.Data = s.queue[:n:n]
	s.queue = s.queue[n:]
	s.nextOffset += n
	if s.finished && len(s.queue) == 0 {
		f.Fin = true
		s.finSent = true
	}
	if len(s.queue) > 0 || (s.finished && !s.finSent) {
		s.rearmLocked()
	}
	return f
}

// rearmLocked registers a follow-up frame request. It runs on the send task,
// which is the queue's consumer, so the request is enqueued from a separate
// goroutine. Frames carry their offsets, so request order doesn't matter.
func (s *sendStream) rearmLocked() {
	if s.requestPending {
		return
	}
	s.requestPending = true
	go func() {
		if err := s.sender.Send(protocol.Encryption1RTT, s.popStreamFrame, nil, s.frameLost); err != nil {
			s.logger.Debugf("Dropping re-armed frame request for stream %d: %s", s.streamID, err)
		}
	}()
}

// frameLost re-enqueues a lost STREAM frame at its original offset.
func (s *sendStream) frameLost(f wire.Frame) {
	s.enqueueRetransmission(f.(*wire.StreamFrame))
}

func (s *sendStream) enqueueRetransmission(sf *wire.StreamFrame) {
	err := s.sender.Send(protocol.Encryption1RTT, s.retransmitProducer(sf), nil, s.frameLost)
	if err != nil {
		s.logger.Debugf("Dropping retransmission of stream frame %d/%d: %s", sf.StreamID, sf.Offset, err)
	}
}

// retransmitProducer emits the frame as far as it fits, splitting off and
// re-enqueueing the rest when the packet is too small.
func (s *sendStream) retransmitProducer(sf *wire.StreamFrame) FrameProducer {
	return func(maxFrameSize protocol.ByteCount) wire.Frame {
		maxDataLen := sf.MaxDataLen(maxFrameSize, s.sender.version)
		if maxDataLen == 0 {
			go s.enqueueRetransmission(sf)
			return nil
		}
		if protocol.ByteCount(len(sf.Data)) > maxDataLen {
			rest := &wire.StreamFrame{
				StreamID:       sf.StreamID,
				Offset:         sf.Offset + maxDataLen,
				Data:           sf.Data[maxDataLen:],
				Fin:            sf.Fin,
				DataLenPresent: true,
			}
			head := &wire.StreamFrame{
				StreamID:       sf.StreamID,
				Offset:         sf.Offset,
				Data:           sf.Data[:maxDataLen],
				DataLenPresent: true,
			}
			go s.enqueueRetransmission(rest)
			return head
		}
		return sf
	}
}
