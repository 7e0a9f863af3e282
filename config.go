package wisp

import (
	"time"

	"github.com/wisp-transport/wisp/internal/protocol"
)

// Config contains the tunables of a connection.
type Config struct {
	// MaxPacketSize is the maximum size of packets handed to the DatagramSink.
	// If not set, protocol.MaxPacketSize is used.
	MaxPacketSize protocol.ByteCount
	// InitialMaxStreamData is the per-stream receive window advertised to the peer.
	InitialMaxStreamData protocol.ByteCount
	// InitialMaxData is the connection-level receive window advertised to the peer.
	InitialMaxData protocol.ByteCount
	// ReadTimeout bounds blocking stream reads. Zero means no timeout.
	ReadTimeout time.Duration
	// Tracer is notified about packet-level events. May be nil.
	Tracer SendTracer
}

// Clone clones the config, so that the caller's copy can't be mutated.
func (c *Config) Clone() *Config {
	copied := *c
	return &copied
}

func populateConfig(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	maxPacketSize := config.MaxPacketSize
	if maxPacketSize == 0 {
		maxPacketSize = protocol.MaxPacketSize
	}
	initialMaxStreamData := config.InitialMaxStreamData
	if initialMaxStreamData == 0 {
		initialMaxStreamData = protocol.DefaultInitialMaxStreamData
	}
	initialMaxData := config.InitialMaxData
	if initialMaxData == 0 {
		initialMaxData = protocol.DefaultInitialMaxData
	}
	return &Config{
		MaxPacketSize:        maxPacketSize,
		InitialMaxStreamData: initialMaxStreamData,
		InitialMaxData:       initialMaxData,
		ReadTimeout:          config.ReadTimeout,
		Tracer:               config.Tracer,
	}
}
