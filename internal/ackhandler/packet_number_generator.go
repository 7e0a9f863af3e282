package ackhandler

import (
	"sync"

	"github.com/wisp-transport/wisp/internal/protocol"
)

// The packetNumberGenerator generates the packet number for the next packet.
// Numbers form a gap-free increasing sequence starting at 0.
type packetNumberGenerator struct {
	next protocol.PacketNumber
}

func (p *packetNumberGenerator) Peek() protocol.PacketNumber {
	return p.next
}

func (p *packetNumberGenerator) Pop() protocol.PacketNumber {
	next := p.next
	p.next++
	return next
}

// A PacketNumberAllocator hands out packet numbers, one sequence per
// encryption level. There is no ordering across levels.
type PacketNumberAllocator struct {
	mutex      sync.Mutex
	generators map[protocol.EncryptionLevel]*packetNumberGenerator
}

// NewPacketNumberAllocator creates a new PacketNumberAllocator.
func NewPacketNumberAllocator() *PacketNumberAllocator {
	return &PacketNumberAllocator{
		generators: make(map[protocol.EncryptionLevel]*packetNumberGenerator),
	}
}

// Peek returns the packet number that the next call to Pop will return.
func (a *PacketNumberAllocator) Peek(encLevel protocol.EncryptionLevel) protocol.PacketNumber {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.generator(encLevel).Peek()
}

// Pop returns the next packet number for an encryption level.
func (a *PacketNumberAllocator) Pop(encLevel protocol.EncryptionLevel) protocol.PacketNumber {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.generator(encLevel).Pop()
}

func (a *PacketNumberAllocator) generator(encLevel protocol.EncryptionLevel) *packetNumberGenerator {
	gen, ok := a.generators[encLevel]
	if !ok {
		gen = &packetNumberGenerator{}
		a.generators[encLevel] = gen
	}
	return gen
}
