package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Version is the QUIC protocol version.
type Version uint32

// The version numbers, making grepping easier.
const (
	// VersionUnknown is taken for version negotiation packets,
	// whose long header carries a version field of 0.
	VersionUnknown Version = 0
	// Version1 is RFC 9000
	Version1 Version = 0x1
)

// SupportedVersions lists the versions this client offers, in preference order.
var SupportedVersions = []Version{Version1}

// IsSupportedVersion returns true if the server supports this version
func IsSupportedVersion(supported []Version, v Version) bool {
	for _, t := range supported {
		if t == v {
			return true
		}
	}
	return false
}

// GreaseVersion returns a reserved version (0x?a?a?a?a), see RFC 9000, section 15.
func GreaseVersion() Version {
	var b [4]byte
	rand.Read(b[:])
	return Version(binary.BigEndian.Uint32(b[:])&0xf0f0f0f0 | 0x0a0a0a0a)
}

func (vn Version) String() string {
	switch vn {
	case VersionUnknown:
		return "unknown"
	case Version1:
		return "v1"
	default:
		return fmt.Sprintf("%#x", uint32(vn))
	}
}
