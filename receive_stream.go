package wisp

import (
	"io"
	"sync"
	"time"

	"github.com/wisp-transport/wisp/internal/flowcontrol"
	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
	"github.com/wisp-transport/wisp/internal/wire"
)

// A receiveStream is the incoming half of a stream.
// Frames are reassembled by offset; Read blocks until contiguous data is
// available, the final offset is reached, the stream is aborted, or the
// configured read timeout expires.
type receiveStream struct {
	streamID protocol.StreamID
	sender   *Sender

	mutex sync.Mutex
	cond  *sync.Cond

	sorter  *frameSorter
	current []byte // contiguous chunk being consumed

	readOffset  protocol.ByteCount
	finalOffset protocol.ByteCount

	aborted bool

	readTimeout time.Duration

	flowController flowcontrol.StreamFlowController
	connFlow       flowcontrol.ConnectionFlowController

	logger utils.Logger
}

func newReceiveStream(
	streamID protocol.StreamID,
	sender *Sender,
	flowController flowcontrol.StreamFlowController,
	connFlow flowcontrol.ConnectionFlowController,
	readTimeout time.Duration,
	logger utils.Logger,
) *receiveStream {
	s := &receiveStream{
		streamID:       streamID,
		sender:         sender,
		sorter:         newFrameSorter(),
		finalOffset:    protocol.MaxByteCount,
		readTimeout:    readTimeout,
		flowController: flowController,
		connFlow:       connFlow,
		logger:         logger,
	}
	s.cond = sync.NewCond(&s.mutex)
	return s
}

// handleStreamFrame inserts received stream data.
// A flow control violation is returned to the caller, which closes the
// connection with a protocol error.
func (s *receiveStream) handleStreamFrame(f *wire.StreamFrame) error {
	maxOffset := f.Offset + protocol.ByteCount(len(f.Data))
	increment, err := s.flowController.UpdateHighestReceived(maxOffset)
	if err != nil {
		return err
	}
	if increment > 0 {
		if err := s.connFlow.IncrementHighestReceived(increment); err != nil {
			return err
		}
	}

	s.mutex.Lock()
	s.sorter.Push(f.Data, f.Offset)
	if f.Fin {
		s.finalOffset = maxOffset
	}
	s.mutex.Unlock()
	s.cond.Broadcast()
	return nil
}

// Read reads reassembled stream data into p.
// It returns io.EOF after the last byte before the final offset was
// consumed, ErrStreamAborted if the stream was reset, and ErrReadTimeout if
// no data arrived within the read timeout.
func (s *receiveStream) Read(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var deadline time.Time
	if s.readTimeout > 0 {
		deadline = time.Now().Add(s.readTimeout)
		timer := time.AfterFunc(s.readTimeout, s.cond.Broadcast)
		defer timer.Stop()
	}

	for {
		if s.aborted {
			return 0, ErrStreamAborted
		}
		if len(s.current) == 0 {
			if data, ok := s.sorter.Pop(); ok {
				s.current = data
			}
		}
		if len(s.current) > 0 {
			n := copy(p, s.current)
			s.current = s.current[n:]
			s.readOffset += protocol.ByteCount(n)
			s.flowController.AddBytesRead(protocol.ByteCount(n))
			s.connFlow.AddBytesRead(protocol.ByteCount(n))
			s.maybeQueueWindowUpdates()
			return n, nil
		}
		if s.readOffset >= s.finalOffset {
			return 0, io.EOF
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0, ErrReadTimeout
		}
		s.cond.Wait()
	}
}

// abort wakes blocked readers; subsequent reads fail with ErrStreamAborted.
func (s *receiveStream) abort() {
	s.mutex.Lock()
	s.aborted = true
	s.mutex.Unlock()
	s.cond.Broadcast()
}

func (s *receiveStream) maybeQueueWindowUpdates() {
	if offset := s.flowController.GetWindowUpdate(); offset != 0 {
		s.queueControlFrame(&wire.MaxStreamDataFrame{StreamID: s.streamID, MaximumStreamData: offset})
	}
	if offset := s.connFlow.GetWindowUpdate(); offset != 0 {
		s.queueControlFrame(&wire.MaxDataFrame{MaximumData: offset})
	}
}

// queueControlFrame enqueues a window update. The advertised limits only
// ever grow, so a lost frame is simply sent again.
func (s *receiveStream) queueControlFrame(f wire.Frame) {
	var onLost func(wire.Frame)
	onLost = func(f wire.Frame) {
		err := s.sender.Send(protocol.Encryption1RTT, func(maxFrameSize protocol.ByteCount) wire.Frame {
			if f.Length(s.sender.version) > maxFrameSize {
				go onLost(f)
				return nil
			}
			return f
		}, nil, onLost)
		if err != nil {
			s.logger.Debugf("Dropping window update for stream %d: %s", s.streamID, err)
		}
	}
	onLost(f)
}
