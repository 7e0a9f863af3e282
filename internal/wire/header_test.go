package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/quicvarint"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Header Parsing", func() {
	Context("connection ID parsing", func() {
		It("parses the connection ID of a long header packet", func() {
			b := []byte{0xc0, 0, 0, 0, 1, 4, 0xde, 0xad, 0xbe, 0xef, 2, 0xca, 0xfe}
			connID, err := ParseConnectionID(b, 8)
			Expect(err).ToNot(HaveOccurred())
			Expect(connID).To(Equal(protocol.ConnectionID{0xde, 0xad, 0xbe, 0xef}))
		})

		It("parses the connection ID of a short header packet", func() {
			b := []byte{0x40, 0xde, 0xad, 0xbe, 0xef, 0x13, 0x37}
			connID, err := ParseConnectionID(b, 4)
			Expect(err).ToNot(HaveOccurred())
			Expect(connID).To(Equal(protocol.ConnectionID{0xde, 0xad, 0xbe, 0xef}))
		})

		It("errors on EOF", func() {
			b := []byte{0xc0, 0, 0, 0, 1, 8, 0xde, 0xad, 0xbe, 0xef}
			_, err := ParseConnectionID(b, 8)
			Expect(err).To(HaveOccurred())
		})
	})

	It("identifies version negotiation packets", func() {
		Expect(IsVersionNegotiationPacket([]byte{0x80 | 0x56, 0, 0, 0, 0})).To(BeTrue())
		Expect(IsVersionNegotiationPacket([]byte{0x80, 1, 0, 0, 0})).To(BeFalse())
		Expect(IsVersionNegotiationPacket([]byte{0x80, 0, 0, 0})).To(BeFalse())
		Expect(IsVersionNegotiationPacket([]byte{0x40, 0, 0, 0, 0})).To(BeFalse())
	})

	Context("parsing long headers", func() {
		It("parses an Initial packet", func() {
			destConnID := protocol.ConnectionID{0xde, 0xad, 0xbe, 0xef}
			srcConnID := protocol.ConnectionID{0xca, 0xfe}
			hdr := &ExtendedHeader{
				Header: Header{
					Type:             protocol.PacketTypeInitial,
					DestConnectionID: destConnID,
					SrcConnectionID:  srcConnID,
					Length:           0x42,
					Version:          protocol.Version1,
				},
				PacketNumber:    0x1337,
				PacketNumberLen: protocol.PacketNumberLen2,
			}
			b, err := hdr.Append(nil, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			parsed, err := parseHeader(bytes.NewReader(b))
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed.Type).To(Equal(protocol.PacketTypeInitial))
			Expect(parsed.DestConnectionID).To(Equal(destConnID))
			Expect(parsed.SrcConnectionID).To(Equal(srcConnID))
			Expect(parsed.Length).To(Equal(protocol.ByteCount(0x42)))
			Expect(parsed.Version).To(Equal(protocol.Version1))

			extHdr, err := parsed.ParseExtended(bytes.NewReader(b), protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			Expect(extHdr.PacketNumber).To(Equal(protocol.PacketNumber(0x1337)))
			Expect(extHdr.PacketNumberLen).To(Equal(protocol.PacketNumberLen2))
			Expect(extHdr.ParsedLen()).To(Equal(hdr.GetLength(protocol.Version1)))
		})

		It("parses an Initial packet with a token", func() {
			hdr := &ExtendedHeader{
				Header: Header{
					Type:             protocol.PacketTypeInitial,
					DestConnectionID: protocol.ConnectionID{1, 2, 3, 4},
					Token:            []byte("foobar"),
					Length:           0x99,
					Version:          protocol.Version1,
				},
				PacketNumber:    0xbeef,
				PacketNumberLen: protocol.PacketNumberLen4,
			}
			b, err := hdr.Append(nil, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			parsed, err := parseHeader(bytes.NewReader(b))
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed.Token).To(Equal([]byte("foobar")))
		})

		It("errors on packets with the fixed bit unset", func() {
			b := []byte{0x80, 0, 0, 0, 1, 0, 0}
			_, err := parseHeader(bytes.NewReader(b))
			Expect(err).To(MatchError("not a QUIC packet"))
		})

		It("errors on unsupported versions", func() {
			hdr := &ExtendedHeader{
				Header: Header{
					Type:    protocol.PacketTypeHandshake,
					Version: 0xdeadbeef,
				},
				PacketNumberLen: protocol.PacketNumberLen2,
			}
			b, err := hdr.Append(nil, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			_, err = parseHeader(bytes.NewReader(b))
			Expect(err).To(MatchError(ErrUnsupportedVersion))
		})

		It("cuts packets according to the length field", func() {
			payload := make([]byte, 100)
			hdr := &ExtendedHeader{
				Header: Header{
					Type:             protocol.PacketTypeHandshake,
					DestConnectionID: protocol.ConnectionID{0xde, 0xca, 0xfb, 0xad},
					Length:           2 + 50, // packet number len + 50 bytes
					Version:          protocol.Version1,
				},
				PacketNumber:    0x42,
				PacketNumberLen: protocol.PacketNumberLen2,
			}
			b, err := hdr.Append(nil, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			hdrLen := len(b)
			b = append(b[:len(b)-2], payload...) // drop the packet number again
			parsedHdr, data, rest, err := ParsePacket(b)
			Expect(err).ToNot(HaveOccurred())
			Expect(parsedHdr.Type).To(Equal(protocol.PacketTypeHandshake))
			Expect(data).To(Equal(b[:hdrLen-2+52]))
			Expect(rest).To(Equal(b[hdrLen-2+52:]))
		})

		It("errors if the packet is shorter than the length field", func() {
			hdr := &ExtendedHeader{
				Header: Header{
					Type:             protocol.PacketTypeHandshake,
					DestConnectionID: protocol.ConnectionID{0xde, 0xca, 0xfb, 0xad},
					Length:           1000,
					Version:          protocol.Version1,
				},
				PacketNumber:    0x42,
				PacketNumberLen: protocol.PacketNumberLen2,
			}
			b, err := hdr.Append(nil, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			_, _, _, err = ParsePacket(b)
			Expect(err).To(MatchError(ContainSubstring("packet length (2 bytes) is smaller than the expected length (1000 bytes)")))
		})
	})

	Context("writing", func() {
		It("writes a header with a 2-byte length field, for all packet sizes", func() {
			hdr := &ExtendedHeader{
				Header: Header{
					Type:             protocol.PacketTypeHandshake,
					DestConnectionID: protocol.ConnectionID{0xde, 0xad},
					Length:           37,
					Version:          protocol.Version1,
				},
				PacketNumber:    0x37,
				PacketNumberLen: protocol.PacketNumberLen2,
			}
			b, err := hdr.Append(nil, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			// the length field is the second to last field, encoded on 2 bytes
			lenField := b[len(b)-4 : len(b)-2]
			l, err := quicvarint.Read(bytes.NewReader(lenField))
			Expect(err).ToNot(HaveOccurred())
			Expect(l).To(BeEquivalentTo(37))
			Expect(hdr.GetLength(protocol.Version1)).To(BeEquivalentTo(len(b)))
		})

		It("writes the version", func() {
			hdr := &ExtendedHeader{
				Header: Header{
					Type:    protocol.PacketTypeInitial,
					Version: protocol.Version1,
				},
				PacketNumberLen: protocol.PacketNumberLen2,
			}
			b, err := hdr.Append(nil, protocol.Version1)
			Expect(err).ToNot(HaveOccurred())
			Expect(binary.BigEndian.Uint32(b[1:5])).To(Equal(uint32(protocol.Version1)))
		})

		It("refuses to write a header with a too long connection ID", func() {
			hdr := &ExtendedHeader{
				Header: Header{
					Type:             protocol.PacketTypeInitial,
					DestConnectionID: make(protocol.ConnectionID, protocol.MaxConnIDLen+1),
					Version:          protocol.Version1,
				},
				PacketNumberLen: protocol.PacketNumberLen2,
			}
			_, err := hdr.Append(nil, protocol.Version1)
			Expect(err).To(HaveOccurred())
		})
	})
})
