package wisp

import (
	"github.com/wisp-transport/wisp/internal/protocol"
)

// A frameSorter reassembles the byte stream from frames arriving out of
// order. Data below the read position is discarded on insert; overlaps are
// resolved when the covering chunk is popped.
type frameSorter struct {
	queue   map[protocol.ByteCount][]byte
	readPos protocol.ByteCount
}

func newFrameSorter() *frameSorter {
	return &frameSorter{queue: make(map[protocol.ByteCount][]byte)}
}

// Push inserts data received at the given stream offset.
// The caller keeps ownership of the slice.
func (s *frameSorter) Push(data []byte, offset protocol.ByteCount) {
	if len(data) == 0 {
		return
	}
	end := offset + protocol.ByteCount(len(data))
	if end <= s.readPos {
		return
	}
	if offset < s.readPos {
		data = data[s.readPos-offset:]
		offset = s.readPos
	}
	if existing, ok := s.queue[offset]; ok && len(existing) >= len(data) {
		return
	}
	s.queue[offset] = append([]byte(nil), data...)
}

// Pop returns the next contiguous chunk of the stream, if available.
func (s *frameSorter) Pop() ([]byte, bool) {
	if data, ok := s.queue[s.readPos]; ok {
		delete(s.queue, s.readPos)
		s.readPos += protocol.ByteCount(len(data))
		return data, true
	}
	// A chunk covering the read position can exist when a later frame
	// partially overlapped an earlier one.
	for offset, data := range s.queue {
		end := offset + protocol.ByteCount(len(data))
		if end <= s.readPos {
			delete(s.queue, offset)
			continue
		}
		if offset < s.readPos {
			delete(s.queue, offset)
			data = data[s.readPos-offset:]
			s.readPos = end
			return data, true
		}
	}
	return nil, false
}

// HasMoreData reports whether a contiguous chunk is available at the read
// position.
func (s *frameSorter) HasMoreData() bool {
	if _, ok := s.queue[s.readPos]; ok {
		return true
	}
	for offset, data := range s.queue {
		if offset < s.readPos && offset+protocol.ByteCount(len(data)) > s.readPos {
			return true
		}
	}
	return false
}
