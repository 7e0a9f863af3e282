package congestion

import (
	"time"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reno Sender", func() {
	var (
		sender   SendAlgorithm
		clock    mockClock
		rttStats *utils.RTTStats
	)

	BeforeEach(func() {
		clock = mockClock{}
		rttStats = utils.NewRTTStats()
		sender = NewRenoSender(&clock, rttStats, protocol.DefaultMaxCongestionWindowPackets*maxDatagramSize, utils.DefaultLogger)
	})

	It("starts with the initial congestion window", func() {
		Expect(sender.GetCongestionWindow()).To(Equal(initialCongestionWindow))
		Expect(sender.BytesInFlight()).To(BeZero())
		Expect(sender.InSlowStart()).To(BeTrue())
	})

	It("admits packets that fit under the window", func() {
		Expect(sender.CanSend(maxDatagramSize)).To(BeTrue())
		Expect(sender.CanSend(initialCongestionWindow)).To(BeTrue())
		Expect(sender.CanSend(initialCongestionWindow + 1)).To(BeFalse())
	})

	It("accounts for bytes in flight", func() {
		sender.OnPacketSent(1000)
		sender.OnPacketSent(2000)
		Expect(sender.BytesInFlight()).To(Equal(protocol.ByteCount(3000)))
		Expect(sender.CanSend(initialCongestionWindow - 3000)).To(BeTrue())
		Expect(sender.CanSend(initialCongestionWindow - 2999)).To(BeFalse())
		sender.OnPacketAcked(1000)
		Expect(sender.BytesInFlight()).To(Equal(protocol.ByteCount(2000)))
	})

	It("increases the window exponentially in slow start", func() {
		sender.OnPacketSent(maxDatagramSize)
		sender.OnPacketAcked(maxDatagramSize)
		Expect(sender.GetCongestionWindow()).To(Equal(initialCongestionWindow + maxDatagramSize))
	})

	It("increases the window linearly in congestion avoidance", func() {
		sender.OnPacketSent(maxDatagramSize)
		sender.OnPacketLost(maxDatagramSize)
		Expect(sender.InSlowStart()).To(BeFalse())

		cwnd := sender.GetCongestionWindow()
		// one window's worth of acks grows the window by one datagram
		numAcks := int(cwnd / maxDatagramSize)
		for i := 0; i < numAcks; i++ {
			sender.OnPacketSent(maxDatagramSize)
			sender.OnPacketAcked(maxDatagramSize)
		}
		Expect(sender.GetCongestionWindow()).To(BeNumerically("~", cwnd+maxDatagramSize, maxDatagramSize))
	})

	It("halves the window on loss", func() {
		sender.OnPacketSent(maxDatagramSize)
		sender.OnPacketLost(maxDatagramSize)
		Expect(sender.GetCongestionWindow()).To(Equal(initialCongestionWindow / 2))
		Expect(sender.BytesInFlight()).To(BeZero())
	})

	It("doesn't shrink the window below the minimum", func() {
		for i := 0; i < 10; i++ {
			sender.OnPacketSent(maxDatagramSize)
			sender.OnPacketLost(maxDatagramSize)
		}
		Expect(sender.GetCongestionWindow()).To(Equal(minCongestionWindow))
	})

	It("doesn't grow the window beyond the maximum", func() {
		maxWindow := protocol.ByteCount(100 * maxDatagramSize)
		sender = NewRenoSender(&clock, rttStats, maxWindow, utils.DefaultLogger)
		for i := 0; i < 200; i++ {
			sender.OnPacketSent(maxDatagramSize)
			sender.OnPacketAcked(maxDatagramSize)
		}
		Expect(sender.GetCongestionWindow()).To(Equal(maxWindow))
	})

	It("returns from WaitForUpdate when an ack is processed", func() {
		sender.OnPacketSent(initialCongestionWindow)
		Expect(sender.CanSend(maxDatagramSize)).To(BeFalse())

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			sender.WaitForUpdate(time.Now().Add(time.Hour))
			close(done)
		}()
		Consistently(done, 50*time.Millisecond).ShouldNot(BeClosed())
		sender.OnPacketAcked(initialCongestionWindow)
		Eventually(done).Should(BeClosed())
		Expect(sender.CanSend(maxDatagramSize)).To(BeTrue())
	})

	It("returns from WaitForUpdate when a loss is detected", func() {
		sender.OnPacketSent(initialCongestionWindow)
		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			sender.WaitForUpdate(time.Now().Add(time.Hour))
			close(done)
		}()
		Consistently(done, 50*time.Millisecond).ShouldNot(BeClosed())
		sender.OnPacketLost(initialCongestionWindow)
		Eventually(done).Should(BeClosed())
	})

	It("returns from WaitForUpdate when the deadline elapses", func() {
		sender = NewRenoSender(DefaultClock{}, rttStats, protocol.DefaultMaxCongestionWindowPackets*maxDatagramSize, utils.DefaultLogger)
		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			sender.WaitForUpdate(time.Now().Add(25 * time.Millisecond))
			close(done)
		}()
		Eventually(done, time.Second).Should(BeClosed())
	})

	It("returns immediately from WaitForUpdate if the deadline has passed", func() {
		clock.Advance(time.Hour)
		sender.WaitForUpdate(time.Time{}.Add(time.Minute))
	})
})
