package ipfix

import (
	"context"
	"errors"
	"io"

	"github.com/flowlens/ipfixcore/wire"
)

// ByteSource is anything a Collector can pull a raw IPFIX byte stream
// from: a net.Conn for TCP, a single UDP datagram wrapped in a
// bytes.Reader, or a test fixture.
type ByteSource interface {
	Read(p []byte) (n int, err error)
}

// Record pairs a decoded data record with the template it was decoded
// against, the unit of work a Collector hands to its Sink.
type Record struct {
	Template Template
	Data     DataRecord
}

// Sink receives every Record a Collector decodes. Implementations must
// not retain Data.Values' backing slices beyond the call if the source
// reuses buffers; Collector does not currently reuse them, but callers
// should not rely on that.
type Sink interface {
	Accept(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Accept(ctx context.Context, rec Record) error { return f(ctx, rec) }

// ChannelSink is a Sink that forwards every Record onto a channel,
// blocking until either the send succeeds or ctx is cancelled.
type ChannelSink chan Record

func (s ChannelSink) Accept(ctx context.Context, rec Record) error {
	select {
	case s <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MultiSink fans every Record out to each Sink in turn, stopping at the
// first error. Collectord binaries use this to feed a websocket tail
// and a persistent sink (postgres/kafka/mqtt) from the same decode loop.
type MultiSink []Sink

func (m MultiSink) Accept(ctx context.Context, rec Record) error {
	for _, s := range m {
		if err := s.Accept(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

const defaultReadChunk = 4096

// Collector drives the pull loop this package's decode layers are built
// around: grow an internal buffer by reading from Source until
// ParseMessage stops returning Incomplete, then walk every Set in the
// resulting Message — feeding template and options template sets into
// Cache, and decoding data sets against whatever template Cache already
// holds for their id — emitting one Record per decoded data record.
type Collector struct {
	Source ByteSource
	Cache  TemplateCache
	Sink   Sink

	// ObservationDomainOverride, when non-nil, is used instead of a
	// message's own ObservationDomainId to key the template cache. A
	// transport that feeds several exporters into one cache can set it to
	// keep two exporters that reuse the same observation domain id apart.
	ObservationDomainOverride *uint32

	// ReadChunk is how many bytes are requested from Source per read
	// when the buffer doesn't yet hold a full message. Defaults to
	// 4096.
	ReadChunk int

	buf []byte
}

// Run reads from Source and decodes messages until Source.Read returns
// an error (io.EOF included) or ctx is cancelled. A message-scoped
// Malformed error terminates Run, since the byte stream cannot be
// resynchronized past it; a set-scoped Malformed error (Set.Err) is
// logged and that set is skipped.
func (c *Collector) Run(ctx context.Context) error {
	logger := FromContext(ctx)
	chunk := c.ReadChunk
	if chunk <= 0 {
		chunk = defaultReadChunk
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		drained, err := c.Feed(ctx, nil)
		if err != nil {
			return err
		}
		if drained {
			continue
		}

		read := make([]byte, chunk)
		n, rerr := c.Source.Read(read)
		if n > 0 {
			if _, ferr := c.Feed(ctx, read[:n]); ferr != nil {
				return ferr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) && n > 0 {
				continue
			}
			logger.V(1).Info("byte source closed", "error", rerr)
			return rerr
		}
	}
}

// Feed appends data to the collector's internal buffer (a transport
// that already has whole, self-delimited messages — e.g. one UDP
// datagram per call — can call Feed directly instead of going through
// Run/Source) and processes every complete message the buffer now
// holds. It reports whether at least one message was processed, and
// stops at the first wire.ErrIncomplete (more bytes needed) or
// propagates a message-scoped Malformed error.
func (c *Collector) Feed(ctx context.Context, data []byte) (drainedAny bool, err error) {
	if len(data) > 0 {
		c.buf = append(c.buf, data...)
	}
	for {
		msg, rest, perr := ParseMessage(c.buf)
		switch {
		case perr == nil:
			c.buf = rest
			if err := c.process(ctx, msg); err != nil {
				return drainedAny, err
			}
			drainedAny = true
		case errors.Is(perr, wire.ErrIncomplete):
			return drainedAny, nil
		case errors.Is(perr, ErrMalformed):
			ErrorsTotal.Inc()
			return drainedAny, perr
		default:
			return drainedAny, perr
		}
	}
}

func (c *Collector) process(ctx context.Context, msg *Message) error {
	logger := FromContext(ctx)
	odid := msg.ObservationDomainId
	if c.ObservationDomainOverride != nil {
		odid = *c.ObservationDomainOverride
	}

	for _, set := range msg.Sets {
		if set.Err != nil {
			ErrorsTotal.Inc()
			logger.Error(set.Err, "dropping malformed set", "setId", set.Header.Id)
			continue
		}

		for _, tr := range set.TemplateRecords {
			if tr.TemplateId < 256 {
				ErrorsTotal.Inc()
				logger.Error(malformed("template id %d is below 256", tr.TemplateId), "rejecting template", "templateId", tr.TemplateId)
				continue
			}
			if tr.FieldCount != 0 {
				if verr := VerifyTemplate(tr.FieldCount, tr.Fields); verr != nil {
					ErrorsTotal.Inc()
					logger.Error(verr, "rejecting invalid template", "templateId", tr.TemplateId)
					continue
				}
			}
			tmpl := Template{
				Key:    TemplateKey{ObservationDomainId: odid, TemplateId: tr.TemplateId},
				Fields: tr.Fields,
			}
			c.applyTemplateUpdate(ctx, tmpl)
		}

		for _, otr := range set.OptionsTemplateRecords {
			if otr.TemplateId < 256 {
				ErrorsTotal.Inc()
				logger.Error(malformed("template id %d is below 256", otr.TemplateId), "rejecting options template", "templateId", otr.TemplateId)
				continue
			}
			if otr.FieldCount != 0 {
				if verr := VerifyOptionsTemplate(otr.FieldCount, otr.ScopeFieldCount, otr.Fields); verr != nil {
					ErrorsTotal.Inc()
					logger.Error(verr, "rejecting invalid options template", "templateId", otr.TemplateId)
					continue
				}
			}
			tmpl := Template{
				Key:             TemplateKey{ObservationDomainId: odid, TemplateId: otr.TemplateId},
				ScopeFieldCount: otr.ScopeFieldCount,
				Fields:          otr.Fields,
			}
			c.applyTemplateUpdate(ctx, tmpl)
		}

		if set.Data == nil {
			continue
		}
		if err := c.decodeDataSet(ctx, TemplateKey{ObservationDomainId: odid, TemplateId: set.Header.Id}, set.Data); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) applyTemplateUpdate(ctx context.Context, tmpl Template) {
	logger := FromContext(ctx)
	outcome, err := c.Cache.UpdateWith(ctx, tmpl)
	if err != nil {
		ErrorsTotal.Inc()
		logger.Error(err, "template update rejected", "template", tmpl.Key)
		return
	}
	switch outcome {
	case Addition:
		logger.V(2).Info("template added", "template", tmpl.Key)
	case Redefinition:
		logger.V(3).Info("template redefined identically", "template", tmpl.Key)
	case RedefinitionDifferent:
		logger.V(1).Info("template redefined with different fields, evicted", "template", tmpl.Key)
	case Withdrawal:
		logger.V(2).Info("template withdrawn", "template", tmpl.Key)
	case WithdrawalUnknown:
		logger.V(1).Info("withdrawal of unknown template", "template", tmpl.Key)
	}
}

func (c *Collector) decodeDataSet(ctx context.Context, key TemplateKey, body []byte) error {
	logger := FromContext(ctx)
	tmpl, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		ErrorsTotal.Inc()
		logger.V(1).Info("dropping data set for unknown template", "template", key)
		return nil
	}

	records, err := DecodeDataRecords(body, tmpl, DecoderOptions{Lenient: true})
	if err != nil {
		ErrorsTotal.Inc()
		logger.Error(err, "dropping malformed data record", "template", key)
	}
	for _, rec := range records {
		if c.Sink == nil {
			continue
		}
		if serr := c.Sink.Accept(ctx, Record{Template: tmpl, Data: rec}); serr != nil {
			return serr
		}
	}
	return nil
}
