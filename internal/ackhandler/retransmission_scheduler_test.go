package ackhandler

import (
	"sync"
	"time"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Retransmission Scheduler", func() {
	var (
		scheduler *RetransmissionScheduler
		log       *SentPacketLog
		rttStats  *utils.RTTStats

		mutex         sync.Mutex
		retransmitted []*Packet
		logMessages   []string
	)

	retransmit := func(p *Packet, msg string) {
		mutex.Lock()
		retransmitted = append(retransmitted, p)
		logMessages = append(logMessages, msg)
		mutex.Unlock()
	}
	numRetransmitted := func() int {
		mutex.Lock()
		defer mutex.Unlock()
		return len(retransmitted)
	}

	BeforeEach(func() {
		retransmitted = nil
		logMessages = nil
		log = NewSentPacketLog()
		rttStats = utils.NewRTTStats()
		// bring the smoothed RTT down so timers fire quickly
		rttStats.UpdateRTT(10*time.Millisecond, 0)
		scheduler = NewRetransmissionScheduler(log, rttStats, retransmit, utils.DefaultLogger)
	})

	AfterEach(func() {
		scheduler.Close()
	})

	It("retransmits an unacked crypto packet", func() {
		p := cryptoPacket(protocol.EncryptionInitial, 0)
		Expect(log.Record(p, time.Now())).To(Succeed())
		scheduler.SchedulePacket(p.ID())

		Eventually(numRetransmitted).Should(Equal(1))
		mutex.Lock()
		defer mutex.Unlock()
		Expect(logMessages[0]).To(Equal("retransmit Initial/0"))
		// the copy carries the same frames, but no packet number yet
		Expect(retransmitted[0].Frames).To(Equal(p.Frames))
		Expect(retransmitted[0].EncryptionLevel).To(Equal(protocol.EncryptionInitial))
		status, _ := log.Get(p.ID())
		Expect(status.Resent).To(BeTrue())
		Expect(scheduler.FailedRetries()).To(Equal(1))
	})

	It("doesn't retransmit an acked packet", func() {
		p := cryptoPacket(protocol.EncryptionInitial, 0)
		Expect(log.Record(p, time.Now())).To(Succeed())
		scheduler.SchedulePacket(p.ID())
		log.MarkAcked(p.ID())

		Consistently(numRetransmitted, 100*time.Millisecond).Should(BeZero())
		Expect(scheduler.FailedRetries()).To(BeZero())
	})

	It("doesn't retransmit when nothing crypto is in flight", func() {
		p := streamPacket(protocol.Encryption1RTT, 0)
		Expect(log.Record(p, time.Now())).To(Succeed())
		scheduler.SchedulePacket(p.ID())

		Consistently(numRetransmitted, 100*time.Millisecond).Should(BeZero())
	})

	It("retransmits a packet only once", func() {
		p := cryptoPacket(protocol.EncryptionInitial, 0)
		Expect(log.Record(p, time.Now())).To(Succeed())
		scheduler.SchedulePacket(p.ID())
		scheduler.SchedulePacket(p.ID())

		Eventually(numRetransmitted).Should(Equal(1))
		Consistently(numRetransmitted, 100*time.Millisecond).Should(Equal(1))
	})

	It("applies exponential backoff to the timeout", func() {
		// smoothed RTT is 10ms, so the first timeout is 20ms
		scheduler.mutex.Lock()
		timeout := scheduler.cryptoTimeout()
		scheduler.mutex.Unlock()
		Expect(timeout).To(Equal(20 * time.Millisecond))

		p := cryptoPacket(protocol.EncryptionInitial, 0)
		Expect(log.Record(p, time.Now())).To(Succeed())
		scheduler.SchedulePacket(p.ID())
		Eventually(scheduler.FailedRetries).Should(Equal(1))

		scheduler.mutex.Lock()
		timeout = scheduler.cryptoTimeout()
		scheduler.mutex.Unlock()
		Expect(timeout).To(Equal(40 * time.Millisecond))
	})

	It("resets the backoff counter", func() {
		p := cryptoPacket(protocol.EncryptionInitial, 0)
		Expect(log.Record(p, time.Now())).To(Succeed())
		scheduler.SchedulePacket(p.ID())
		Eventually(scheduler.FailedRetries).Should(Equal(1))
		scheduler.ResetFailedRetries()
		Expect(scheduler.FailedRetries()).To(BeZero())
	})

	It("fires timers in deadline order", func() {
		p0 := cryptoPacket(protocol.EncryptionInitial, 0)
		p1 := cryptoPacket(protocol.EncryptionHandshake, 0)
		Expect(log.Record(p0, time.Now())).To(Succeed())
		Expect(log.Record(p1, time.Now())).To(Succeed())
		scheduler.SchedulePacket(p0.ID())
		scheduler.SchedulePacket(p1.ID())

		Eventually(numRetransmitted).Should(Equal(2))
		mutex.Lock()
		defer mutex.Unlock()
		Expect(logMessages).To(Equal([]string{"retransmit Initial/0", "retransmit Handshake/0"}))
	})
})
