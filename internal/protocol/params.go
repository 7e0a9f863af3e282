package protocol

import "time"

// DesiredReceiveBufferSize is the kernel UDP receive buffer size that we'd like to use.
const DesiredReceiveBufferSize = (1 << 20) * 2 // 2 MB

// MaxPacketSize is the default maximum size of a datagram handed to the sink.
const MaxPacketSize ByteCount = 1500

// MaxConnIDLen is the maximum length of the connection ID
const MaxConnIDLen = 20

// DefaultConnectionIDLength is the connection ID length that is used for self-generated connection IDs
const DefaultConnectionIDLength = 8

// DefaultInitialMaxStreamData is the stream-level flow control window for receiving data.
const DefaultInitialMaxStreamData ByteCount = (1 << 10) * 512 // 512 kb

// DefaultInitialMaxData is the connection-level flow control window for receiving data.
const DefaultInitialMaxData ByteCount = DefaultInitialMaxStreamData * 3 / 2

// ConnectionFlowControlMultiplier determines how much larger the connection flow control windows needs to be relative to any stream's flow control window
const ConnectionFlowControlMultiplier = 1.5

// WindowUpdateFraction determines how much of the receive window may be
// consumed before a window update is queued.
const WindowUpdateFraction = 0.10

// DefaultCryptoRetryBase is the multiplier applied to the smoothed RTT when
// scheduling the retransmission of an unacknowledged crypto packet.
const DefaultCryptoRetryBase = 2

// InitialCongestionWindowPackets is the initial congestion window in packet units.
const InitialCongestionWindowPackets = 32

// DefaultMaxCongestionWindowPackets is the default for the max congestion window in packet units.
const DefaultMaxCongestionWindowPackets = 10000

// MaxCongestionWindowPackets is the maximum congestion window in packet units.
const MaxCongestionWindowPackets = 20000

// DefaultIdleTimeout is the default idle timeout
const DefaultIdleTimeout = 30 * time.Second

// MinStreamFrameSize is the minimum size that has to be left in a packet, so that we add another STREAM frame.
// This avoids splitting up STREAM frames into small pieces, which has 2 advantages:
// 1. it reduces the framing overhead
// 2. it reduces the head-of-line blocking, when a packet is lost
const MinStreamFrameSize ByteCount = 128

// MaxAckDelay is the maximum time by which we delay sending ACKs.
const MaxAckDelay = 25 * time.Millisecond

// AckDelayExponent is the ack delay exponent used when sending ACKs.
const AckDelayExponent = 3

// DefaultAckDelayExponent is the default ack delay exponent.
// It applies before the peer's transport parameters are known, and in all
// packet number spaces other than the application data space.
const DefaultAckDelayExponent = 3

// MaxNumAckRanges is the maximum number of ACK ranges that we process.
// Ranges beyond this limit are dropped when receiving an ACK frame.
const MaxNumAckRanges = 32
