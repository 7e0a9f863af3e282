package wire

import (
	"fmt"
	"strings"

	"github.com/wisp-transport/wisp/internal/utils"
)

// LogFrame logs a frame, either sent or received
func LogFrame(logger utils.Logger, frame Frame, sent bool) {
	if !logger.Debug() {
		return
	}
	dir := "<-"
	if sent {
		dir = "->"
	}
	switch f := frame.(type) {
	case *CryptoFrame:
		dataLen := len(f.Data)
		logger.Debugf("\t%s &wire.CryptoFrame{Offset: %d, Data length: %d, Offset + Data length: %d}", dir, f.Offset, dataLen, int(f.Offset)+dataLen)
	case *StreamFrame:
		logger.Debugf("\t%s &wire.StreamFrame{StreamID: %d, Fin: %t, Offset: %d, Data length: %d, Offset + Data length: %d}", dir, f.StreamID, f.Fin, f.Offset, f.DataLen(), f.Offset+f.DataLen())
	case *AckFrame:
		if f.ECT0 > 0 || f.ECT1 > 0 || f.ECNCE > 0 {
			logger.Debugf("\t%s &wire.AckFrame{LargestAcked: %d, LowestAcked: %d, DelayTime: %s, ECT0: %d, ECT1: %d, CE: %d}", dir, f.LargestAcked(), f.LowestAcked(), f.DelayTime.String(), f.ECT0, f.ECT1, f.ECNCE)
			return
		}
		if len(f.AckRanges) > 1 {
			ackRanges := make([]string, len(f.AckRanges))
			for i, r := range f.AckRanges {
				ackRanges[i] = fmt.Sprintf("{Largest: %d, Smallest: %d}", r.Largest, r.Smallest)
			}
			logger.Debugf("\t%s &wire.AckFrame{LargestAcked: %d, LowestAcked: %d, AckRanges: {%s}, DelayTime: %s}", dir, f.LargestAcked(), f.LowestAcked(), strings.Join(ackRanges, ", "), f.DelayTime.String())
			return
		}
		logger.Debugf("\t%s &wire.AckFrame{LargestAcked: %d, LowestAcked: %d, DelayTime: %s}", dir, f.LargestAcked(), f.LowestAcked(), f.DelayTime.String())
	case *MaxDataFrame:
		logger.Debugf("\t%s &wire.MaxDataFrame{MaximumData: %d}", dir, f.MaximumData)
	case *MaxStreamDataFrame:
		logger.Debugf("\t%s &wire.MaxStreamDataFrame{StreamID: %d, MaximumStreamData: %d}", dir, f.StreamID, f.MaximumStreamData)
	case *StopSendingFrame:
		logger.Debugf("\t%s &wire.StopSendingFrame{StreamID: %d, ErrorCode: %#x}", dir, f.StreamID, f.ErrorCode)
	case *ConnectionCloseFrame:
		logger.Debugf("\t%s &wire.ConnectionCloseFrame{IsApplicationError: %t, ErrorCode: %#x, ReasonPhrase: %q}", dir, f.IsApplicationError, f.ErrorCode, f.ReasonPhrase)
	default:
		logger.Debugf("\t%s %#v", dir, frame)
	}
}
