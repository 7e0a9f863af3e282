package handshake

import (
	"sync"

	"github.com/wisp-transport/wisp/internal/protocol"
)

// CryptoSetup holds the sealers and openers for all encryption levels.
// The keys for the Initial encryption level are derived from the destination
// connection ID of the first packet. Keys for the Handshake and 1-RTT levels
// are installed by the TLS stack as the handshake progresses.
type CryptoSetup struct {
	mutex sync.Mutex

	perspective protocol.Perspective

	sealers map[protocol.EncryptionLevel]Sealer
	openers map[protocol.EncryptionLevel]Opener
}

// NewCryptoSetup creates a new CryptoSetup, with Initial keys derived from the
// destination connection ID.
func NewCryptoSetup(destConnID protocol.ConnectionID, pers protocol.Perspective) *CryptoSetup {
	sealer, opener := NewInitialAEAD(destConnID, pers)
	return &CryptoSetup{
		perspective: pers,
		sealers:     map[protocol.EncryptionLevel]Sealer{protocol.EncryptionInitial: sealer},
		openers:     map[protocol.EncryptionLevel]Opener{protocol.EncryptionInitial: opener},
	}
}

// ChangeConnectionID recalculates the Initial keys.
// It is used when the server responds with a different source connection ID.
func (h *CryptoSetup) ChangeConnectionID(destConnID protocol.ConnectionID) {
	sealer, opener := NewInitialAEAD(destConnID, h.perspective)
	h.mutex.Lock()
	h.sealers[protocol.EncryptionInitial] = sealer
	h.openers[protocol.EncryptionInitial] = opener
	h.mutex.Unlock()
}

// SetWriteSecret installs the send keys for an encryption level.
func (h *CryptoSetup) SetWriteSecret(encLevel protocol.EncryptionLevel, secret []byte) {
	h.mutex.Lock()
	h.sealers[encLevel] = NewSealerFromTrafficSecret(secret)
	h.mutex.Unlock()
}

// SetReadSecret installs the receive keys for an encryption level.
func (h *CryptoSetup) SetReadSecret(encLevel protocol.EncryptionLevel, secret []byte) {
	h.mutex.Lock()
	h.openers[encLevel] = NewOpenerFromTrafficSecret(secret)
	h.mutex.Unlock()
}

// GetSealer returns the sealer for an encryption level.
func (h *CryptoSetup) GetSealer(encLevel protocol.EncryptionLevel) (Sealer, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	sealer, ok := h.sealers[encLevel]
	if !ok {
		return nil, ErrKeysNotYetAvailable
	}
	return sealer, nil
}

// GetOpener returns the opener for an encryption level.
func (h *CryptoSetup) GetOpener(encLevel protocol.EncryptionLevel) (Opener, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	opener, ok := h.openers[encLevel]
	if !ok {
		return nil, ErrKeysNotYetAvailable
	}
	return opener, nil
}

// DropKeys removes the keys for an encryption level.
// The send path never calls it; keys stay installed until DropKeys is called.
func (h *CryptoSetup) DropKeys(encLevel protocol.EncryptionLevel) {
	h.mutex.Lock()
	delete(h.sealers, encLevel)
	delete(h.openers, encLevel)
	h.mutex.Unlock()
}
