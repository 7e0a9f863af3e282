package ackhandler

import (
	"sync"
	"time"

	"github.com/wisp-transport/wisp/internal/congestion"
	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
	"github.com/wisp-transport/wisp/internal/wire"
)

// The AckProcessor consumes ACK frames for outgoing packets.
// It feeds RTT samples, transitions registry records to acked, releases
// congestion window, and tracks whether crypto packets are still in flight.
type AckProcessor struct {
	mutex sync.Mutex

	log        *SentPacketLog
	rttStats   *utils.RTTStats
	congestion congestion.SendAlgorithm
	scheduler  *RetransmissionScheduler
	logger     utils.Logger

	handshakeInFlight bool

	ackedHook func(PacketID)

	ackedPackets []protocol.PacketNumber // to avoid allocations in Process
}

// NewAckProcessor creates a new AckProcessor.
func NewAckProcessor(
	log *SentPacketLog,
	rttStats *utils.RTTStats,
	cc congestion.SendAlgorithm,
	scheduler *RetransmissionScheduler,
	logger utils.Logger,
) *AckProcessor {
	return &AckProcessor{
		log:        log,
		rttStats:   rttStats,
		congestion: cc,
		scheduler:  scheduler,
		logger:     logger,
	}
}

// Process handles a received ACK frame.
// Packet numbers not present in the registry are ignored: they are either
// spurious or belong to an encryption level whose keys were dropped.
func (p *AckProcessor) Process(ack *wire.AckFrame, encLevel protocol.EncryptionLevel, rcvTime time.Time) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if status, ok := p.log.Get(PacketID{EncryptionLevel: encLevel, PacketNumber: ack.LargestAcked()}); ok {
		p.rttStats.UpdateRTT(rcvTime.Sub(status.TimeSent), ack.DelayTime)
		if p.logger.Debug() {
			p.logger.Debugf("\tupdated RTT: %s (σ: %s)", p.rttStats.SmoothedRTT(), p.rttStats.MeanDeviation())
		}
	}

	p.ackedPackets = ack.AckedPacketNumbers(p.ackedPackets[:0])
	for _, pn := range p.ackedPackets {
		id := PacketID{EncryptionLevel: encLevel, PacketNumber: pn}
		prev, ok := p.log.MarkAcked(id)
		if !ok || prev.Acked {
			continue
		}
		p.congestion.OnPacketAcked(prev.Packet.Length)
		for _, f := range prev.Packet.Frames {
			if f.OnAcked != nil {
				f.OnAcked(f.Frame)
			}
		}
		if p.ackedHook != nil {
			p.ackedHook(id)
		}
	}

	if p.handshakeInFlight && !p.log.PendingCrypto() {
		p.handshakeInFlight = false
		p.scheduler.ResetFailedRetries()
		p.logger.Debugf("No crypto packets in flight anymore")
	}
}

// OnAcked registers a hook that is invoked for every packet transitioning
// to acked. Must be called before the first Process call.
func (p *AckProcessor) OnAcked(f func(PacketID)) {
	p.ackedHook = f
}

// SetHandshakeInFlight is called by the send loop when a crypto packet is
// handed to the datagram sink.
func (p *AckProcessor) SetHandshakeInFlight() {
	p.mutex.Lock()
	p.handshakeInFlight = true
	p.mutex.Unlock()
}

// HandshakeInFlight reports whether any crypto packet awaits acknowledgement.
func (p *AckProcessor) HandshakeInFlight() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.handshakeInFlight
}
