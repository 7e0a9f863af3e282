// Command example exercises the send path against a UDP peer.
// It derives Initial keys from a random connection ID, sends a crypto message
// (retransmitted until the process exits, since no peer acknowledges it),
// installs a throwaway 1-RTT key and writes a bit of stream data.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wisp-transport/wisp"
	"github.com/wisp-transport/wisp/internal/handshake"
	"github.com/wisp-transport/wisp/internal/protocol"
	"github.com/wisp-transport/wisp/internal/utils"
	"github.com/wisp-transport/wisp/metrics"
	"github.com/wisp-transport/wisp/qlog"
)

type udpSink struct {
	conn *net.UDPConn
}

func (s *udpSink) Write(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

// multiTracer fans events out to multiple tracers.
type multiTracer []wisp.SendTracer

func (m multiTracer) SentPacket(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber, size protocol.ByteCount, isRetransmission bool) {
	for _, t := range m {
		t.SentPacket(encLevel, pn, size, isRetransmission)
	}
}

func (m multiTracer) AckedPacket(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber) {
	for _, t := range m {
		t.AckedPacket(encLevel, pn)
	}
}

func (m multiTracer) UpdatedMetrics(bytesInFlight, congestionWindow protocol.ByteCount) {
	for _, t := range m {
		t.UpdatedMetrics(bytesInFlight, congestionWindow)
	}
}

func main() {
	addr := flag.String("addr", "localhost:4433", "peer address")
	qlogPath := flag.String("qlog", "", "write a qlog trace to this file")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address (e.g. :2112)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if err := run(*addr, *qlogPath, *metricsAddr, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr, qlogPath, metricsAddr string, verbose bool) error {
	logger := utils.DefaultLogger
	if verbose {
		logger.SetLogLevel(utils.LogLevelDebug)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	srcConnID := make(protocol.ConnectionID, 4)
	destConnID := make(protocol.ConnectionID, 8)
	if _, err := rand.Read(srcConnID); err != nil {
		return err
	}
	if _, err := rand.Read(destConnID); err != nil {
		return err
	}

	var tracers multiTracer
	var qlogTracer *qlog.Tracer
	if qlogPath != "" {
		f, err := os.Create(qlogPath)
		if err != nil {
			return err
		}
		qlogTracer = qlog.NewTracer(f, destConnID)
		tracers = append(tracers, qlogTracer)
	}
	if metricsAddr != "" {
		tracers = append(tracers, metrics.NewTracer())
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				logger.Errorf("metrics server failed: %s", err)
			}
		}()
	}

	config := &wisp.Config{}
	if len(tracers) > 0 {
		config.Tracer = tracers
	}

	cryptoSetup := handshake.NewCryptoSetup(destConnID, protocol.PerspectiveClient)
	sender := wisp.NewSender(&udpSink{conn: conn}, srcConnID, destConnID, protocol.Version1, cryptoSetup, config, logger)
	go func() {
		if err := sender.Run(); err != nil {
			logger.Errorf("send task stopped: %s", err)
		}
	}()

	cryptoStream := wisp.NewCryptoStream(protocol.EncryptionInitial, sender, logger)
	if _, err := cryptoStream.Write([]byte("wisp client hello")); err != nil {
		return err
	}

	// Normally installed by the TLS stack once the handshake completes.
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	cryptoSetup.SetWriteSecret(protocol.Encryption1RTT, secret)

	streams := wisp.NewStreamManager(sender, config, logger)
	str := streams.OpenStream()
	if _, err := str.Write([]byte("hello on stream 0")); err != nil {
		return err
	}
	if err := str.Close(); err != nil {
		return err
	}

	// No peer acknowledges anything, so watch the crypto retransmissions fire.
	time.Sleep(2 * time.Second)

	streams.AbortAll()
	sender.LogStatistics()
	sender.Close()
	if qlogTracer != nil {
		qlogTracer.Close()
	}
	return nil
}
