package wire

import (
	"sync"

	"github.com/wisp-transport/wisp/internal/protocol"
)

var ackFramePool sync.Pool

func init() {
	ackFramePool.New = func() interface{} {
		return &AckFrame{
			AckRanges: make([]AckRange, 0, protocol.MaxNumAckRanges),
		}
	}
}

// GetAckFrame gets an ACK frame from the pool.
// It is the callers responsibility to fill *all* of the fields of the returned ACK frame.
func GetAckFrame() *AckFrame {
	return ackFramePool.Get().(*AckFrame)
}

// PutAckFrame returns an ACK frame to the pool, after resetting it.
func PutAckFrame(f *AckFrame) {
	if cap(f.AckRanges) != protocol.MaxNumAckRanges {
		return
	}
	f.Reset()
	ackFramePool.Put(f)
}
