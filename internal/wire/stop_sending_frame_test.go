package wire

import (
	"bytes"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/quicvarint"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("STOP_SENDING frame", func() {
	Context("when parsing", func() {
		It("parses a sample frame", func() {
			data := encodeVarInt(0xdecafbad)     // stream ID
			data = append(data, 0x13, 0x37)      // error code
			b := bytes.NewReader(data)
			frame, err := parseStopSendingFrame(b, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			Expect(frame.StreamID).To(Equal(protocol.StreamID(0xdecafbad)))
			Expect(frame.ErrorCode).To(Equal(protocol.ApplicationErrorCode(0x1337)))
			Expect(b.Len()).To(BeZero())
		})

		It("errors on EOFs", func() {
			data := encodeVarInt(0xdecafbad)
			data = append(data, 0x12, 0x34)
			_, err := parseStopSendingFrame(bytes.NewReader(data), protocol.Version1)
			Expect(err).NotTo(HaveOccurred())
			for i := range data {
				_, err := parseStopSendingFrame(bytes.NewReader(data[:i]), protocol.Version1)
				Expect(err).To(HaveOccurred())
			}
		})
	})

	Context("when writing", func() {
		It("writes", func() {
			frame := &StopSendingFrame{
				StreamID:  0xdeadbeefcafe,
				ErrorCode: 0xbead,
			}
			b, err := frame.Append(nil, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			expected := []byte{stopSendingFrameType}
			expected = append(expected, encodeVarInt(0xdeadbeefcafe)...)
			expected = append(expected, 0xbe, 0xad)
			Expect(b).To(Equal(expected))
		})

		It("has the correct length", func() {
			frame := &StopSendingFrame{
				StreamID:  0xdeadbeef,
				ErrorCode: 0x1234,
			}
			Expect(frame.Length(protocol.Version1)).To(Equal(protocol.ByteCount(1 + quicvarint.Len(0xdeadbeef) + 2)))
		})
	})
})
