package utils

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RTT stats", func() {
	var rttStats *RTTStats

	BeforeEach(func() {
		rttStats = NewRTTStats()
	})

	It("defaults to an initial smoothed RTT of 100ms", func() {
		Expect(rttStats.HasMeasurement()).To(BeFalse())
		Expect(rttStats.SmoothedRTT()).To(Equal(100 * time.Millisecond))
		Expect(rttStats.MinRTT()).To(BeZero())
	})

	It("takes the first sample as smoothed RTT", func() {
		rttStats.UpdateRTT(300*time.Millisecond, 0)
		Expect(rttStats.HasMeasurement()).To(BeTrue())
		Expect(rttStats.LatestRTT()).To(Equal(300 * time.Millisecond))
		Expect(rttStats.SmoothedRTT()).To(Equal(300 * time.Millisecond))
		Expect(rttStats.MeanDeviation()).To(Equal(150 * time.Millisecond))
	})

	It("smooths with alpha 1/8", func() {
		rttStats.UpdateRTT(300*time.Millisecond, 0)
		rttStats.UpdateRTT(300*time.Millisecond, 0)
		Expect(rttStats.SmoothedRTT()).To(Equal(300 * time.Millisecond))
		rttStats.UpdateRTT(200*time.Millisecond, 0)
		// 7/8 * 300 + 1/8 * 200
		Expect(rttStats.SmoothedRTT()).To(Equal(time.Duration(287500) * time.Microsecond))
	})

	It("tracks the minimum RTT", func() {
		rttStats.UpdateRTT(200*time.Millisecond, 0)
		rttStats.UpdateRTT(10*time.Millisecond, 0)
		rttStats.UpdateRTT(50*time.Millisecond, 0)
		Expect(rttStats.MinRTT()).To(Equal(10 * time.Millisecond))
	})

	It("subtracts the ack delay from the sample", func() {
		rttStats.UpdateRTT(200*time.Millisecond, 100*time.Millisecond)
		Expect(rttStats.LatestRTT()).To(Equal(100 * time.Millisecond))
		// minRTT uses the raw send delta
		Expect(rttStats.MinRTT()).To(Equal(200 * time.Millisecond))
	})

	It("ignores an ack delay larger than the sample", func() {
		rttStats.UpdateRTT(100*time.Millisecond, 300*time.Millisecond)
		Expect(rttStats.LatestRTT()).To(Equal(100 * time.Millisecond))
	})

	It("ignores non-positive samples", func() {
		rttStats.UpdateRTT(0, 0)
		rttStats.UpdateRTT(-10*time.Millisecond, 0)
		Expect(rttStats.HasMeasurement()).To(BeFalse())
	})
})
