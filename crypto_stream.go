package wisp

import (
	"sync"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
	"github.com/wisp-transport/wisp/internal/wire"
)

// A CryptoStream carries handshake messages at one encryption level.
// Retransmission of CRYPTO frames is driven by the sender's scheduler, so no
// loss callback is registered here.
type CryptoStream struct {
	encLevel protocol.EncryptionLevel
	sender   *Sender

	mutex sync.Mutex

	queue      []byte
	nextOffset protocol.ByteCount

	requestPending bool

	logger utils.Logger
}

func NewCryptoStream(encLevel protocol.EncryptionLevel, sender *Sender, logger utils.Logger) *CryptoStream {
	return &CryptoStream{
		encLevel: encLevel,
		sender:   sender,
		logger:   logger,
	}
}

// Write enqueues handshake data for sending.
func (s *CryptoStream) Write(p []byte) (int, error) {
	s.mutex.Lock()
	s.queue = append(s.queue, p...)
	needRequest := !s.requestPending
	s.requestPending = true
	s.mutex.Unlock()

	if needRequest {
		if err := s.sender.Send(s.encLevel, s.popCryptoFrame, nil, nil); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// popCryptoFrame materializes the next CRYPTO frame on the send task.
func (s *CryptoStream) popCryptoFrame(maxFrameSize protocol.ByteCount) wire.Frame {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.requestPending = false
	if len(s.queue) == 0 {
		return nil
	}
	f := &wire.CryptoFrame{Offset: s.nextOffset}
	maxDataLen := f.MaxDataLen(maxFrameSize)
	if maxDataLen == 0 {
		s.rearmLocked()
		return nil
	}
	n := min(protocol.ByteCount(len(s.queue)), maxDataLen)
	f.Data = s.queue[:n:n]
	s.queue = s.queue[n:]
	s.nextOffset += n
	if len(s.queue) > 0 {
		s.rearmLocked()
	}
	return f
}

func (s *CryptoStream) rearmLocked() {
	if s.requestPending {
		return
	}
	s.requestPending = true
	go func() {
		if err := s.sender.Send(s.encLevel, s.popCryptoFrame, nil, nil); err != nil {
			s.logger.Debugf("Dropping re-armed crypto frame request (%s): %s", s.encLevel, err)
		}
	}()
}
