package handshake

import (
	"errors"

	"github.com/wisp-transport/wisp/internal/protocol"
)

const (
	// AEADOverhead is the tag size of AEAD_AES_128_GCM.
	AEADOverhead = 16
	// HeaderProtectionSampleSize is the size of the ciphertext sample
	// used for header protection, see RFC 9001, section 5.4.2.
	HeaderProtectionSampleSize = 16
)

// ErrDecryptionFailed is returned when the AEAD fails to authenticate the packet.
var ErrDecryptionFailed = errors.New("decryption failed")

// ErrKeysNotYetAvailable is returned when an opener or sealer is requested for
// an encryption level for which the keys haven't been derived yet.
var ErrKeysNotYetAvailable = errors.New("keys not yet available")

// A Sealer seals a packet
type Sealer interface {
	Seal(dst, src []byte, packetNumber protocol.PacketNumber, associatedData []byte) []byte
	EncryptHeader(sample []byte, firstByte *byte, pnBytes []byte)
	Overhead() int
}

// An Opener opens a packet
type Opener interface {
	Open(dst, src []byte, packetNumber protocol.PacketNumber, associatedData []byte) ([]byte, error)
	DecryptHeader(sample []byte, firstByte *byte, pnBytes []byte)
}
