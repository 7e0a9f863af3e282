package wisp

import (
	"fmt"
	"sync"
	"time"

	"github.com/wisp-transport/wisp/internal/ackhandler"
	"github.com/wisp-transport/wisp/internal/congestion"
	"github.com/wisp-transport/wisp/internal/handshake"
	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
	"github.com/wisp-transport/wisp/internal/wire"
)

const sendQueueCapacity = 64

// admissionCheckInterval bounds how long the send loop blocks on the
// congestion controller before re-checking for shutdown.
const admissionCheckInterval = 100 * time.Millisecond

type closeRequest struct {
	encLevel protocol.EncryptionLevel
	frame    *wire.ConnectionCloseFrame
	done     chan struct{}
}

type sendRequest struct {
	encLevel protocol.EncryptionLevel
	produce  FrameProducer
	// packet is set instead of produce for retransmissions.
	// The copy carries its frames and callbacks; it is numbered on dequeue.
	packet  *ackhandler.Packet
	onAcked func(wire.Frame)
	onLost  func(wire.Frame)
	logTag  string
}

// The Sender owns the outbound path of a connection: a FIFO queue of frame
// requests, a send task that assembles, numbers and protects packets, and the
// recovery state (RTT, congestion, sent-packet registry, crypto
// retransmissions).
type Sender struct {
	queue    chan sendRequest
	closeReq chan *closeRequest
	// a request dequeued during assembly that doesn't fit the packet being built
	pending *sendRequest

	sink        DatagramSink
	packer      *packetPacker
	version     protocol.Version
	perspective protocol.Perspective

	allocator  *ackhandler.PacketNumberAllocator
	sentLog    *ackhandler.SentPacketLog
	processor  *ackhandler.AckProcessor
	scheduler  *ackhandler.RetransmissionScheduler
	congestion congestion.SendAlgorithm
	rttStats   *utils.RTTStats

	tracer SendTracer
	logger utils.Logger

	closeOnce  sync.Once
	closed     chan struct{}
	runStopped chan struct{}
}

// NewSender creates the send path for a connection.
// The caller runs the send task by calling Run, usually in its own goroutine.
func NewSender(
	sink DatagramSink,
	srcConnID, destConnID protocol.ConnectionID,
	version protocol.Version,
	cryptoSetup *handshake.CryptoSetup,
	config *Config,
	logger utils.Logger,
) *Sender {
	config = populateConfig(config)
	rttStats := utils.NewRTTStats()
	cc := congestion.NewRenoSender(
		congestion.DefaultClock{},
		rttStats,
		protocol.DefaultMaxCongestionWindowPackets*protocol.MaxPacketSize,
		logger,
	)
	sentLog := ackhandler.NewSentPacketLog()
	s := &Sender{
		queue:       make(chan sendRequest, sendQueueCapacity),
		closeReq:    make(chan *closeRequest, 1),
		sink:        sink,
		packer:      newPacketPacker(srcConnID, destConnID, version, cryptoSetup, config.MaxPacketSize, protocol.PerspectiveClient),
		version:     version,
		perspective: protocol.PerspectiveClient,
		allocator:   ackhandler.NewPacketNumberAllocator(),
		sentLog:     sentLog,
		congestion:  cc,
		rttStats:    rttStats,
		tracer:      config.Tracer,
		logger:      logger,
		closed:      make(chan struct{}),
		runStopped:  make(chan struct{}),
	}
	s.scheduler = ackhandler.NewRetransmissionScheduler(sentLog, rttStats, s.queueRetransmission, logger)
	s.processor = ackhandler.NewAckProcessor(sentLog, rttStats, cc, s.scheduler, logger)
	if s.tracer != nil {
		s.processor.OnAcked(func(id ackhandler.PacketID) {
			s.tracer.AckedPacket(id.EncryptionLevel, id.PacketNumber)
		})
	}
	return s
}

// Send enqueues a frame request.
// The producer is invoked by the send task just before packet assembly, with
// the space remaining in the packet. Returning nil withdraws the request.
// onAcked and onLost may be nil.
func (s *Sender) Send(encLevel protocol.EncryptionLevel, produce FrameProducer, onAcked, onLost func(wire.Frame)) error {
	select {
	case <-s.closed:
		return ErrConnectionClosed
	default:
	}
	select {
	case s.queue <- sendRequest{encLevel: encLevel, produce: produce, onAcked: onAcked, onLost: onLost}:
		return nil
	case <-s.closed:
		return ErrConnectionClosed
	}
}

// queueRetransmission re-enqueues a copy of a crypto packet whose
// retransmission timer fired.
func (s *Sender) queueRetransmission(p *ackhandler.Packet, logMessage string) {
	select {
	case s.queue <- sendRequest{encLevel: p.EncryptionLevel, packet: p, logTag: logMessage}:
	case <-s.closed:
	}
}

// HandleAck processes an ACK frame received at the given encryption level.
func (s *Sender) HandleAck(ack *wire.AckFrame, encLevel protocol.EncryptionLevel, rcvTime time.Time) {
	s.processor.Process(ack, encLevel, rcvTime)
	if s.tracer != nil {
		s.tracer.UpdatedMetrics(s.congestion.BytesInFlight(), s.congestion.GetCongestionWindow())
	}
}

// SetToken sets the token used in the header of Initial packets.
func (s *Sender) SetToken(token []byte) { s.packer.SetToken(token) }

// ChangeDestConnectionID switches the destination connection ID, e.g. after
// the server's first response carries a different source connection ID.
func (s *Sender) ChangeDestConnectionID(connID protocol.ConnectionID) {
	s.packer.ChangeDestConnectionID(connID)
}

// RTTStats exposes the connection's RTT estimator.
func (s *Sender) RTTStats() *utils.RTTStats { return s.rttStats }

// Run runs the send task until Close is called, a CONNECTION_CLOSE is sent,
// or a write on the sink fails. A sink failure is fatal to the connection;
// the error is returned.
func (s *Sender) Run() error {
	defer close(s.runStopped)
	for {
		if s.pending != nil {
			req := *s.pending
			s.pending = nil
			if err := s.sendRequest(req); err != nil {
				s.logger.Errorf("send task terminating: %s", err)
				s.Close()
				return err
			}
			continue
		}
		select {
		case cr := <-s.closeReq:
			err := s.sendConnectionClose(cr)
			s.Close()
			close(cr.done)
			if err != nil {
				s.logger.Errorf("send task terminating: %s", err)
				return err
			}
			return nil
		case req := <-s.queue:
			if err := s.sendRequest(req); err != nil {
				s.logger.Errorf("send task terminating: %s", err)
				s.Close()
				return err
			}
		case <-s.closed:
			return nil
		}
	}
}

// sendConnectionClose packs and writes a CONNECTION_CLOSE packet.
// The packet is not tracked for acknowledgement and bypasses congestion
// admission, as the connection is torn down right after.
func (s *Sender) sendConnectionClose(cr *closeRequest) error {
	pn := s.allocator.Pop(cr.encLevel)
	raw, err := s.packer.PackPacket(cr.encLevel, pn, []ackhandler.Frame{{Frame: cr.frame}}, 0)
	if err != nil {
		return fmt.Errorf("packing CONNECTION_CLOSE: %w", err)
	}
	if err := s.sink.Write(raw); err != nil {
		return fmt.Errorf("writing CONNECTION_CLOSE: %w", err)
	}
	s.logger.Debugf("-> Sending CONNECTION_CLOSE (%s, error 0x%x)", cr.encLevel, cr.frame.ErrorCode)
	if s.tracer != nil {
		s.tracer.SentPacket(cr.encLevel, pn, protocol.ByteCount(len(raw)), false)
	}
	return nil
}

func (s *Sender) sendRequest(req sendRequest) error {
	encLevel := req.encLevel
	budget := s.packer.MaxPayloadSize(encLevel)

	var frames []ackhandler.Frame
	isRetransmission := req.packet != nil
	if isRetransmission {
		frames = req.packet.Frames
	} else {
		f := req.produce(budget)
		if f == nil {
			return nil
		}
		frames = append(frames, ackhandler.Frame{Frame: f, OnAcked: req.onAcked, OnLost: req.onLost})
		budget -= f.Length(s.version)
		frames = s.assemble(frames, encLevel, budget)
	}

	var payloadLen protocol.ByteCount
	for _, f := range frames {
		payloadLen += f.Frame.Length(s.version)
	}
	size := payloadLen + s.packer.HeaderOverhead(encLevel)
	if encLevel == protocol.EncryptionInitial && s.perspective == protocol.PerspectiveClient {
		size = max(size, protocol.MinInitialPacketSize)
	}

	if !s.admit(size) {
		return nil
	}

	pn := s.allocator.Pop(encLevel)
	raw, err := s.packer.PackPacket(encLevel, pn, frames, 0)
	if err != nil {
		return fmt.Errorf("packing packet %d (%s): %w", pn, encLevel, err)
	}
	if err := s.sink.Write(raw); err != nil {
		return fmt.Errorf("writing datagram: %w", err)
	}

	packet := &ackhandler.Packet{
		PacketNumber:    pn,
		EncryptionLevel: encLevel,
		Frames:          frames,
		Length:          protocol.ByteCount(len(raw)),
		SendTime:        time.Now(),
	}
	if err := s.sentLog.Record(packet, packet.SendTime); err != nil {
		return err
	}
	s.congestion.OnPacketSent(packet.Length)
	if packet.IsCrypto() {
		s.processor.SetHandshakeInFlight()
		s.scheduler.SchedulePacket(packet.ID())
	}
	if s.logger.Debug() {
		tag := req.logTag
		if tag == "" {
			tag = "packet"
		}
		s.logger.Debugf("-> Sending %s %s (%d bytes, %d frames)", tag, packet.ID(), packet.Length, len(frames))
	}
	if s.tracer != nil {
		s.tracer.SentPacket(encLevel, pn, packet.Length, isRetransmission)
		s.tracer.UpdatedMetrics(s.congestion.BytesInFlight(), s.congestion.GetCongestionWindow())
	}
	return nil
}

// assemble opportunistically drains queued requests for the same encryption
// level into the packet being built. A request for a different level, or a
// retransmission, is stashed for the next iteration of the send loop.
func (s *Sender) assemble(frames []ackhandler.Frame, encLevel protocol.EncryptionLevel, budget protocol.ByteCount) []ackhandler.Frame {
	for budget > 0 {
		select {
		case next := <-s.queue:
			if next.encLevel != encLevel || next.packet != nil {
				s.pending = &next
				return frames
			}
			f := next.produce(budget)
			if f == nil {
				continue
			}
			frames = append(frames, ackhandler.Frame{Frame: f, OnAcked: next.onAcked, OnLost: next.onLost})
			budget -= f.Length(s.version)
		default:
			return frames
		}
	}
	return frames
}

// admit blocks until the congestion controller admits size bytes.
// It returns false if the sender was closed while waiting.
func (s *Sender) admit(size protocol.ByteCount) bool {
	for !s.congestion.CanSend(size) {
		select {
		case <-s.closed:
			return false
		default:
		}
		s.congestion.WaitForUpdate(time.Now().Add(admissionCheckInterval))
	}
	return true
}

// CloseWithError sends a CONNECTION_CLOSE to the peer and shuts down the send
// path. It is used when a peer violation makes the connection unusable.
func (s *Sender) CloseWithError(encLevel protocol.EncryptionLevel, errorCode uint64, reason string) error {
	cr := &closeRequest{
		encLevel: encLevel,
		frame:    &wire.ConnectionCloseFrame{ErrorCode: errorCode, ReasonPhrase: reason},
		done:     make(chan struct{}),
	}
	select {
	case s.closeReq <- cr:
	case <-s.closed:
		return ErrConnectionClosed
	}
	select {
	case <-cr.done:
	case <-s.runStopped:
	}
	return nil
}

// Close shuts down the send path. Queued requests are discarded.
// Close is idempotent and safe to call from any goroutine.
func (s *Sender) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.scheduler.Close()
	})
}

// LogStatistics writes one line per sent packet, in packet ID order, with its
// final acknowledgement status.
func (s *Sender) LogStatistics() {
	for _, status := range s.sentLog.SnapshotSorted() {
		s.logger.Infof("%s\t%s", status.Packet.ID(), status.Status())
	}
}
