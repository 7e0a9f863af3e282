package handshake

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/wisp-transport/wisp/internal/protocol"
)

type sealer struct {
	aead        cipher.AEAD
	hpEncrypter cipher.Block

	iv []byte
	// use a single slice to avoid allocations
	nonceBuf []byte
	hpMask   []byte
}

var _ Sealer = &sealer{}

func newSealer(aead cipher.AEAD, iv []byte, hpEncrypter cipher.Block) Sealer {
	return &sealer{
		aead:        aead,
		iv:          iv,
		nonceBuf:    make([]byte, aead.NonceSize()),
		hpEncrypter: hpEncrypter,
		hpMask:      make([]byte, hpEncrypter.BlockSize()),
	}
}

func (s *sealer) Seal(dst, src []byte, pn protocol.PacketNumber, ad []byte) []byte {
	return s.aead.Seal(dst, nonce(s.nonceBuf, s.iv, pn), src, ad)
}

func (s *sealer) EncryptHeader(sample []byte, firstByte *byte, pnBytes []byte) {
	if len(sample) != s.hpEncrypter.BlockSize() {
		panic("invalid sample size")
	}
	s.hpEncrypter.Encrypt(s.hpMask, sample)
	if *firstByte&0x80 == 0x80 {
		*firstByte ^= s.hpMask[0] & 0xf
	} else {
		*firstByte ^= s.hpMask[0] & 0x1f
	}
	for i := range pnBytes {
		pnBytes[i] ^= s.hpMask[i+1]
	}
}

func (s *sealer) Overhead() int {
	return s.aead.Overhead()
}

type opener struct {
	aead        cipher.AEAD
	hpDecrypter cipher.Block

	iv []byte
	// use a single slice to avoid allocations
	nonceBuf []byte
	hpMask   []byte
}

var _ Opener = &opener{}

func newOpener(aead cipher.AEAD, iv []byte, hpDecrypter cipher.Block) Opener {
	return &opener{
		aead:        aead,
		iv:          iv,
		nonceBuf:    make([]byte, aead.NonceSize()),
		hpDecrypter: hpDecrypter,
		hpMask:      make([]byte, hpDecrypter.BlockSize()),
	}
}

func (o *opener) Open(dst, src []byte, pn protocol.PacketNumber, ad []byte) ([]byte, error) {
	dec, err := o.aead.Open(dst, nonce(o.nonceBuf, o.iv, pn), src, ad)
	if err != nil {
		err = ErrDecryptionFailed
	}
	return dec, err
}

func (o *opener) DecryptHeader(sample []byte, firstByte *byte, pnBytes []byte) {
	if len(sample) != o.hpDecrypter.BlockSize() {
		panic("invalid sample size")
	}
	o.hpDecrypter.Encrypt(o.hpMask, sample)
	if *firstByte&0x80 == 0x80 {
		*firstByte ^= o.hpMask[0] & 0xf
	} else {
		*firstByte ^= o.hpMask[0] & 0x1f
	}
	for i := range pnBytes {
		pnBytes[i] ^= o.hpMask[i+1]
	}
}

// nonce XORs the 62-bit packet number into the last 8 bytes of the IV,
// see RFC 9001, section 5.3.
func nonce(buf, iv []byte, pn protocol.PacketNumber) []byte {
	copy(buf, iv)
	for i := 0; i < 8; i++ {
		buf[len(buf)-8+i] ^= byte(pn >> (8 * (7 - i)))
	}
	return buf
}

func createAEAD(secret []byte) (cipher.AEAD, []byte /* iv */) {
	key := hkdfExpandLabel(crypto.SHA256, secret, []byte{}, "quic key", 16)
	iv := hkdfExpandLabel(crypto.SHA256, secret, []byte{}, "quic iv", 12)
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(fmt.Sprintf("error creating new AES cipher: %s", err))
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(fmt.Sprintf("error creating new GCM: %s", err))
	}
	return aead, iv
}

func createHeaderProtector(secret []byte) cipher.Block {
	hpKey := hkdfExpandLabel(crypto.SHA256, secret, []byte{}, "quic hp", 16)
	hp, err := aes.NewCipher(hpKey)
	if err != nil {
		panic(fmt.Sprintf("error creating new AES cipher: %s", err))
	}
	return hp
}

// NewSealerFromTrafficSecret derives the key, IV and header protection key
// from a TLS traffic secret, for AEAD_AES_128_GCM.
func NewSealerFromTrafficSecret(secret []byte) Sealer {
	aead, iv := createAEAD(secret)
	return newSealer(aead, iv, createHeaderProtector(secret))
}

// NewOpenerFromTrafficSecret derives the key, IV and header protection key
// from a TLS traffic secret, for AEAD_AES_128_GCM.
func NewOpenerFromTrafficSecret(secret []byte) Opener {
	aead, iv := createAEAD(secret)
	return newOpener(aead, iv, createHeaderProtector(secret))
}
