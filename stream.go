package wisp

import (
	"fmt"
	"sync"

	"github.com/wisp-transport/wisp/internal/flowcontrol"
	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
	"github.com/wisp-transport/wisp/internal/wire"
)

// A Stream is an ordered byte stream.
// Reads and writes don't block each other; the two halves have independent
// state.
type Stream struct {
	streamID    protocol.StreamID
	perspective protocol.Perspective

	send    *sendStream
	receive *receiveStream
}

// StreamID returns the stream's ID.
func (s *Stream) StreamID() StreamID { return s.streamID }

func (s *Stream) canWrite() bool {
	return s.streamID.Type() == protocol.StreamTypeBidi || s.streamID.InitiatedBy() == s.perspective
}

func (s *Stream) canRead() bool {
	return s.streamID.Type() == protocol.StreamTypeBidi || s.streamID.InitiatedBy() != s.perspective
}

// Write buffers p for sending. See sendStream.Write.
func (s *Stream) Write(p []byte) (int, error) {
	if !s.canWrite() {
		return 0, ErrStreamClosed
	}
	return s.send.Write(p)
}

// Read reads reassembled data. See receiveStream.Read.
func (s *Stream) Read(p []byte) (int, error) {
	if !s.canRead() {
		return 0, ErrStreamAborted
	}
	return s.receive.Read(p)
}

// Close closes the sending side of the stream.
func (s *Stream) Close() error {
	if !s.canWrite() {
		return nil
	}
	return s.send.Close()
}

// Abort tears the stream down locally. Blocked readers are woken.
func (s *Stream) Abort() {
	s.receive.abort()
	s.send.abort()
}

// The StreamManager owns the streams of a connection and the
// connection-level flow control window they share.
type StreamManager struct {
	mutex sync.Mutex

	sender      *Sender
	config      *Config
	perspective protocol.Perspective

	connFlow flowcontrol.ConnectionFlowController
	streams  map[protocol.StreamID]*Stream

	nextOutgoingBidiStream protocol.StreamID
	nextOutgoingUniStream  protocol.StreamID

	logger utils.Logger
}

// NewStreamManager creates a stream manager for a client connection.
func NewStreamManager(sender *Sender, config *Config, logger utils.Logger) *StreamManager {
	config = populateConfig(config)
	return &StreamManager{
		sender:                 sender,
		config:                 config,
		perspective:            protocol.PerspectiveClient,
		connFlow:               flowcontrol.NewConnectionFlowController(config.InitialMaxData, logger),
		streams:                make(map[protocol.StreamID]*Stream),
		nextOutgoingBidiStream: 0,
		nextOutgoingUniStream:  2,
		logger:                 logger,
	}
}

func (m *StreamManager) newStream(id protocol.StreamID) *Stream {
	return &Stream{
		streamID:    id,
		perspective: m.perspective,
		send:        newSendStream(id, m.sender, m.logger),
		receive: newReceiveStream(
			id,
			m.sender,
			flowcontrol.NewStreamFlowController(id, m.config.InitialMaxStreamData, m.logger),
			m.connFlow,
			m.config.ReadTimeout,
			m.logger,
		),
	}
}

// OpenStream opens a new bidirectional stream.
func (m *StreamManager) OpenStream() *Stream {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	id := m.nextOutgoingBidiStream
	m.nextOutgoingBidiStream += 4
	str := m.newStream(id)
	m.streams[id] = str
	return str
}

// OpenUniStream opens a new outgoing unidirectional stream.
func (m *StreamManager) OpenUniStream() *Stream {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	id := m.nextOutgoingUniStream
	m.nextOutgoingUniStream += 4
	str := m.newStream(id)
	m.streams[id] = str
	return str
}

// getOrOpenReceiveStream returns the stream, creating it if the peer opened
// it. Opening a stream on the peer's behalf is a protocol violation.
func (m *StreamManager) getOrOpenReceiveStream(id protocol.StreamID) (*Stream, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if str, ok := m.streams[id]; ok {
		return str, nil
	}
	if id.InitiatedBy() == m.perspective {
		return nil, fmt.Errorf("peer sent data for locally-initiated stream %d that was never opened", id)
	}
	str := m.newStream(id)
	m.streams[id] = str
	return str, nil
}

// HandleStreamFrame routes a received STREAM frame to its stream.
func (m *StreamManager) HandleStreamFrame(f *wire.StreamFrame) error {
	str, err := m.getOrOpenReceiveStream(f.StreamID)
	if err != nil {
		return err
	}
	return str.receive.handleStreamFrame(f)
}

// HandleStopSendingFrame aborts the sending side of the named stream.
func (m *StreamManager) HandleStopSendingFrame(f *wire.StopSendingFrame) error {
	m.mutex.Lock()
	str, ok := m.streams[f.StreamID]
	m.mutex.Unlock()
	if !ok {
		return fmt.Errorf("received STOP_SENDING for unknown stream %d", f.StreamID)
	}
	str.send.handleStopSendingFrame(f)
	return nil
}

// AbortAll aborts the receiving side of every stream, e.g. when the
// connection closes, waking blocked readers. The sending sides are not aborted.
func (m *StreamManager) AbortAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, str := range m.streams {
		str.receive.abort()
	}
}
