// Package udp adapts ipfix.Collector to a UDP socket. Each datagram is a
// complete, self-delimited IPFIX message (RFC 7011 §10.3.2), so a
// datagram is handed to the collector whole via Collector.Feed rather
// than pulled through a ByteSource by Collector.Run.
package udp

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"github.com/flowlens/ipfixcore"
)

var (
	// PacketBufferSize bounds how many bytes are read per datagram.
	// IPFIX message length is itself limited to 2^16-1 by its header's
	// 16-bit length field; 1500 matches a typical path MTU so a single
	// unfragmented datagram holds one message without IP fragmentation
	// risk.
	PacketBufferSize = 1500
)

var (
	PacketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "udp_listener_packets_total",
		Help: "Total number of packets received via UDP listener",
	})
	ErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "udp_listener_errors_total",
		Help: "Total number of errors encountered in the UDP listener",
	})
	PacketBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "udp_listener_packet_bytes",
		Help: "Total number of bytes read in the UDP listener",
	})
)

// Listener reads IPFIX datagrams from a UDP socket and decodes each one
// through the ipfix.Collector kept for its sender. Because one socket address often
// multiplexes several exporters, the observation domain id alone may
// collide between two of them; Listener keys a distinct Collector (and
// therefore a distinct ObservationDomainOverride-free template
// namespace) per remote address.
type Listener struct {
	bindAddr string
	newCache func() ipfix.TemplateCache
	sink     ipfix.Sink

	conn net.PacketConn

	collectors map[string]*ipfix.Collector
}

// New creates a Listener bound to bindAddr. newCache is called once per
// distinct remote address to build that exporter's template cache;
// passing ipfix.NewEphemeralCache matches the default single-collector
// cache ownership this package's collectors otherwise assume.
func New(bindAddr string, newCache func() ipfix.TemplateCache, sink ipfix.Sink) *Listener {
	return &Listener{
		bindAddr:   bindAddr,
		newCache:   newCache,
		sink:       sink,
		collectors: make(map[string]*ipfix.Collector),
	}
}

// Listen binds the socket (with SO_REUSEADDR/SO_REUSEPORT so a restart
// doesn't have to wait out TIME_WAIT) and reads datagrams until ctx is
// cancelled or the socket errors.
func (l *Listener) Listen(ctx context.Context) error {
	logger := ipfix.FromContext(ctx)

	listenConfig := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			controlErr := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if sockErr != nil {
					return
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if controlErr != nil {
				return controlErr
			}
			return sockErr
		},
	}

	conn, err := listenConfig.ListenPacket(ctx, "udp", l.bindAddr)
	if err != nil {
		logger.Error(err, "failed to bind udp listener", "addr", l.bindAddr)
		return err
	}
	l.conn = conn
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	logger.Info("started UDP listener", "addr", l.bindAddr)
	defer logger.Info("shut down UDP listener", "addr", l.bindAddr)

	buffer := make([]byte, PacketBufferSize)
	for {
		n, addr, err := conn.ReadFrom(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			ErrorsTotal.Inc()
			logger.Error(err, "failed to read from UDP socket")
			return err
		}
		PacketsTotal.Inc()
		PacketBytes.Add(float64(n))

		packet := make([]byte, n)
		copy(packet, buffer[:n])

		c := l.collectorFor(addr.String())
		if _, err := c.Feed(ctx, packet); err != nil {
			ErrorsTotal.Inc()
			logger.Error(err, "dropping malformed datagram", "remote_addr", addr.String())
			delete(l.collectors, addr.String())
		}
	}
}

func (l *Listener) collectorFor(remoteAddr string) *ipfix.Collector {
	if c, ok := l.collectors[remoteAddr]; ok {
		return c
	}
	c := &ipfix.Collector{Cache: l.newCache(), Sink: l.sink}
	l.collectors[remoteAddr] = c
	return c
}
