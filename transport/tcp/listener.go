// Package tcp adapts ipfix.Collector to a long-lived TCP connection.
// Unlike UDP, IPFIX over TCP is a plain byte stream (RFC 7011 §10.3.1):
// one connection may carry many messages back to back, and a read may
// land in the middle of one, so framing is left entirely to
// ipfix.Collector's internal buffer rather than attempted here.
package tcp

import (
	"context"
	"errors"
	"net"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowlens/ipfixcore"
)

var (
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tcp_listener_active_connections",
		Help: "Total number of active connections currently maintained by the TCP listener",
	})
	ErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcp_listener_errors_total",
		Help: "Total number of errors encountered in the TCP listener",
	})
	ReceivedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcp_listener_received_bytes",
		Help: "Total number of bytes read in the TCP listener",
	})
)

// Listener accepts TCP connections and runs one ipfix.Collector per
// connection, each with its own template cache: RFC 7011 scopes a
// collecting process' templates to the transport session that
// announced them.
type Listener struct {
	bindAddr string
	newCache func() ipfix.TemplateCache
	sink     ipfix.Sink

	listener *net.TCPListener
}

// New creates a Listener bound to bindAddr. newCache is called once per
// accepted connection to build that session's template cache.
func New(bindAddr string, newCache func() ipfix.TemplateCache, sink ipfix.Sink) *Listener {
	return &Listener{bindAddr: bindAddr, newCache: newCache, sink: sink}
}

// Listen accepts connections until ctx is cancelled, handling each in
// its own goroutine so one slow or stalled exporter cannot block
// others.
func (l *Listener) Listen(ctx context.Context) error {
	logger := ipfix.FromContext(ctx)

	addr, err := net.ResolveTCPAddr("tcp", l.bindAddr)
	if err != nil {
		return err
	}
	l.listener, err = net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}
	defer l.listener.Close()

	go func() {
		<-ctx.Done()
		l.listener.Close()
	}()

	go l.acceptLoop(ctx)

	logger.Info("started TCP listener", "addr", l.bindAddr)
	<-ctx.Done()
	logger.Info("shut down TCP listener", "addr", l.bindAddr)
	return nil
}

func (l *Listener) acceptLoop(ctx context.Context) {
	logger := ipfix.FromContext(ctx)
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			ErrorsTotal.Inc()
			logger.Error(err, "failed to accept TCP connection", "addr", l.bindAddr)
			return
		}
		ActiveConnections.Inc()
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	logger := ipfix.FromContext(ctx, "remote_addr", conn.RemoteAddr().String())
	defer ActiveConnections.Dec()
	defer conn.Close()

	logger.V(3).Info("starting new session from TCP connection")

	countingSource := &countingReader{Reader: conn}
	c := &ipfix.Collector{Source: countingSource, Cache: l.newCache(), Sink: l.sink}

	err := c.Run(ctx)
	ReceivedBytes.Add(float64(countingSource.n))
	if err != nil && !errors.Is(err, context.Canceled) {
		ErrorsTotal.Inc()
		logger.Error(err, "session ended")
	}
	logger.V(3).Info("closed connection")
}

type countingReader struct {
	Reader interface{ Read([]byte) (int, error) }
	n      int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.n += int64(n)
	return n, err
}
