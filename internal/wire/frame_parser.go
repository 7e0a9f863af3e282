package wire

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/quicvarint"
)

const (
	pingFrameType   = 0x1
	ackFrameType    = 0x2
	ackECNFrameType = 0x3
)

var errInvalidFrameLength = errors.New("invalid frame length")

// A FrameParser parses QUIC frames, one by one.
type FrameParser interface {
	ParseNext(r *bytes.Reader, encLevel protocol.EncryptionLevel) (Frame, error)
	SetAckDelayExponent(exp uint8)
}

type frameParser struct {
	ackDelayExponent uint8

	version protocol.Version
}

var _ FrameParser = &frameParser{}

// NewFrameParser creates a new frame parser.
func NewFrameParser(v protocol.Version) FrameParser {
	return &frameParser{
		ackDelayExponent: protocol.DefaultAckDelayExponent,
		version:          v,
	}
}

// ParseNext parses the next frame.
// It skips PADDING frames.
func (p *frameParser) ParseNext(r *bytes.Reader, encLevel protocol.EncryptionLevel) (Frame, error) {
	for r.Len() != 0 {
		typeByte, _ := r.ReadByte()
		if typeByte == 0x0 { // PADDING frame
			continue
		}
		r.UnreadByte()

		f, err := p.parseFrame(r, encLevel)
		if err != nil {
			return nil, fmt.Errorf("error parsing frame of type %#x: %w", typeByte, err)
		}
		return f, nil
	}
	return nil, nil
}

func (p *frameParser) parseFrame(r *bytes.Reader, encLevel protocol.EncryptionLevel) (Frame, error) {
	typ, err := quicvarint.Read(r)
	if err != nil {
		return nil, err
	}

	var frame Frame
	if typ&0xf8 == 0x8 {
		frame, err = parseStreamFrame(r, typ, p.version)
	} else {
		switch typ {
		case pingFrameType:
			frame = &PingFrame{}
		case ackFrameType, ackECNFrameType:
			ackDelayExponent := p.ackDelayExponent
			if encLevel != protocol.Encryption1RTT {
				ackDelayExponent = protocol.DefaultAckDelayExponent
			}
			frame, err = parseAckFrame(r, typ, ackDelayExponent, p.version)
		case stopSendingFrameType:
			frame, err = parseStopSendingFrame(r, p.version)
		case maxDataFrameType:
			frame, err = parseMaxDataFrame(r, p.version)
		case maxStreamDataFrameType:
			frame, err = parseMaxStreamDataFrame(r, p.version)
		case cryptoFrameType:
			frame, err = parseCryptoFrame(r, p.version)
		case connectionCloseFrameType, applicationCloseFrameType:
			frame, err = parseConnectionCloseFrame(r, typ, p.version)
		default:
			err = fmt.Errorf("unknown frame type: %#x", typ)
		}
	}
	if err != nil {
		return nil, err
	}
	if !frameAllowedAtEncLevel(frame, encLevel) {
		return nil, fmt.Errorf("%T not allowed at encryption level %s", frame, encLevel)
	}
	return frame, nil
}

func frameAllowedAtEncLevel(f Frame, encLevel protocol.EncryptionLevel) bool {
	switch encLevel {
	case protocol.EncryptionInitial, protocol.EncryptionHandshake:
		switch f.(type) {
		case *CryptoFrame, *AckFrame, *ConnectionCloseFrame, *PingFrame:
			return true
		default:
			return false
		}
	case protocol.Encryption1RTT:
		return true
	default:
		panic("unknown encryption level")
	}
}

// SetAckDelayExponent sets the acknowledgment delay exponent (sent in the transport parameters).
// This value is used to scale the ACK Delay field in ACK frames of the application data space.
func (p *frameParser) SetAckDelayExponent(exp uint8) {
	p.ackDelayExponent = exp
}
