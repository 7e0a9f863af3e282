package wire

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"

	"github.com/wisp-transport/wisp/internal/protocol"
)

// ParseVersionNegotiationPacket parses a Version Negotiation packet.
func ParseVersionNegotiationPacket(b []byte) (dest, src protocol.ConnectionID, _ []protocol.Version, _ error) {
	hdr, err := parseHeader(bytes.NewReader(b))
	if err != nil {
		return nil, nil, nil, err
	}
	b = b[hdr.ParsedLen():]
	if len(b) == 0 {
		return nil, nil, nil, errors.New("version negotiation packet has empty version list")
	}
	if len(b)%4 != 0 {
		return nil, nil, nil, errors.New("version negotiation packet has a version list with an invalid length")
	}
	versions := make([]protocol.Version, len(b)/4)
	for i := 0; len(b) > 0; i++ {
		versions[i] = protocol.Version(binary.BigEndian.Uint32(b[:4]))
		b = b[4:]
	}
	return hdr.DestConnectionID, hdr.SrcConnectionID, versions, nil
}

// ComposeVersionNegotiation composes a Version Negotiation packet.
func ComposeVersionNegotiation(destConnID, srcConnID protocol.ConnectionID, versions []protocol.Version) []byte {
	greasedVersions := make([]protocol.Version, len(versions)+1)
	greasedVersions[0] = protocol.GreaseVersion()
	copy(greasedVersions[1:], versions)

	expectedLen := 1 /* type byte */ + 4 /* version field */ +
		1 /* dest conn ID len */ + destConnID.Len() +
		1 /* src conn ID len */ + srcConnID.Len() +
		len(greasedVersions)*4
	var firstByte byte = 0x80
	// The next 7 bits are unused. Set them to random values to exercise peers' parsers.
	var r [1]byte
	rand.Read(r[:])
	firstByte |= r[0] & 0x7f

	b := make([]byte, 0, expectedLen)
	b = append(b, firstByte)
	b = append(b, 0, 0, 0, 0) // version 0
	b = append(b, uint8(destConnID.Len()))
	b = append(b, destConnID.Bytes()...)
	b = append(b, uint8(srcConnID.Len()))
	b = append(b, srcConnID.Bytes()...)
	for _, v := range greasedVersions {
		b = binary.BigEndian.AppendUint32(b, uint32(v))
	}
	return b
}
