// Package qlog records send path events as a qlog trace.
package qlog

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/francoispqt/gojay"

	"github.com/wisp-transport/wisp/internal/protocol"
)

const eventChanSize = 50

// A Tracer records send path events as a qlog trace.
// Events are serialized on a dedicated goroutine and flushed on Close.
type Tracer struct {
	mutex sync.Mutex

	w             io.WriteCloser
	odcid         protocol.ConnectionID
	referenceTime time.Time

	suffix     []byte
	events     chan event
	encodeErr  error
	runStopped chan struct{}
}

// NewTracer creates a Tracer writing a qlog to w.
func NewTracer(w io.WriteCloser, odcid protocol.ConnectionID) *Tracer {
	t := &Tracer{
		w:             w,
		odcid:         odcid,
		runStopped:    make(chan struct{}),
		events:        make(chan event, eventChanSize),
		referenceTime: time.Now(),
	}
	go t.run()
	return t
}

func (t *Tracer) run() {
	defer close(t.runStopped)
	buf := &bytes.Buffer{}
	enc := gojay.NewEncoder(buf)
	tl := &topLevel{
		traces: traces{
			{
				VantagePoint: vantagePoint{Type: "client"},
				CommonFields: commonFields{
					ODCID:         connectionID(t.odcid),
					GroupID:       connectionID(t.odcid),
					ReferenceTime: t.referenceTime,
				},
				EventFields: eventFields[:],
				Events:      events{},
			},
		},
	}
	if err := enc.Encode(tl); err != nil {
		panic(fmt.Sprintf("qlog encoding into a bytes.Buffer failed: %s", err))
	}
	data := buf.Bytes()
	t.suffix = data[buf.Len()-4:]
	if _, err := t.w.Write(data[:buf.Len()-4]); err != nil {
		t.encodeErr = err
	}
	enc = gojay.NewEncoder(t.w)
	isFirst := true
	for ev := range t.events {
		if t.encodeErr != nil { // if encoding failed, just continue draining the event channel
			continue
		}
		if !isFirst {
			t.w.Write([]byte(","))
		}
		if err := enc.Encode(ev); err != nil {
			t.encodeErr = err
		}
		isFirst = false
	}
}

// Close flushes all recorded events and closes the underlying writer.
func (t *Tracer) Close() {
	if err := t.export(); err != nil {
		log.Printf("exporting qlog failed: %s\n", err)
	}
}

func (t *Tracer) export() error {
	close(t.events)
	<-t.runStopped
	if t.encodeErr != nil {
		return t.encodeErr
	}
	if _, err := t.w.Write(t.suffix); err != nil {
		return err
	}
	return t.w.Close()
}

func (t *Tracer) recordEvent(eventTime time.Time, details eventDetails) {
	t.events <- event{
		RelativeTime: eventTime.Sub(t.referenceTime),
		eventDetails: details,
	}
}

// SentPacket records a packet_sent event.
func (t *Tracer) SentPacket(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber, size protocol.ByteCount, isRetransmission bool) {
	t.mutex.Lock()
	t.recordEvent(time.Now(), eventPacketSent{
		PacketType:     getPacketTypeFromEncryptionLevel(encLevel),
		PacketNumber:   pn,
		PacketSize:     size,
		Retransmission: isRetransmission,
	})
	t.mutex.Unlock()
}

// AckedPacket records a packet_acked event.
func (t *Tracer) AckedPacket(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber) {
	t.mutex.Lock()
	t.recordEvent(time.Now(), eventPacketAcked{
		PacketType:   getPacketTypeFromEncryptionLevel(encLevel),
		PacketNumber: pn,
	})
	t.mutex.Unlock()
}

// UpdatedMetrics records a recovery metrics_updated event.
func (t *Tracer) UpdatedMetrics(bytesInFlight, congestionWindow protocol.ByteCount) {
	t.mutex.Lock()
	t.recordEvent(time.Now(), eventMetricsUpdated{
		BytesInFlight:    bytesInFlight,
		CongestionWindow: congestionWindow,
	})
	t.mutex.Unlock()
}
