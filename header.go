package ipfix

import (
	"github.com/flowlens/ipfixcore/iana/version"
	"github.com/flowlens/ipfixcore/wire"
)

// messageHeaderLength is the fixed size of an IPFIX message header
// (RFC 7011 §3.1): version, length, export time, sequence number,
// observation domain id.
const messageHeaderLength = 16

// setHeaderLength is the fixed size of a set header: set id, set length.
const setHeaderLength = 4

// MessageHeader is the fixed 16-byte header at the start of every IPFIX
// message. Version is checked against version.IPFIX; NetFlow v9 shares
// the set/template framing this package implements but is out of scope,
// and a mismatched version is a framing-level Malformed error rather
// than a per-set one, since it governs how every later byte is read.
type MessageHeader struct {
	Version             version.ProtocolVersion
	Length              uint16
	ExportTime          uint32
	SequenceNumber      uint32
	ObservationDomainId uint32
}

func parseMessageHeader(c *wire.Cursor) (MessageHeader, error) {
	var h MessageHeader

	raw, err := c.Uint16()
	if err != nil {
		return h, err
	}
	v := version.ProtocolVersion(raw)
	if v != version.IPFIX {
		return h, malformed("%w: %d", ErrUnknownVersion, raw)
	}
	h.Version = v

	length, err := c.Uint16()
	if err != nil {
		return h, err
	}
	if length < messageHeaderLength {
		return h, malformed("%w: %d", ErrMessageTooShort, length)
	}
	h.Length = length

	if h.ExportTime, err = c.Uint32(); err != nil {
		return h, err
	}
	if h.SequenceNumber, err = c.Uint32(); err != nil {
		return h, err
	}
	if h.ObservationDomainId, err = c.Uint32(); err != nil {
		return h, err
	}
	return h, nil
}

// SetHeader is the fixed 4-byte header starting every set within a message.
// Id 2 denotes a TemplateSet, 3 an OptionsTemplateSet, 4-255 are reserved,
// and 256-65535 denote a DataSet keyed by that value as a TemplateId.
type SetHeader struct {
	Id     uint16
	Length uint16
}

func parseSetHeader(c *wire.Cursor) (SetHeader, error) {
	var sh SetHeader
	var err error
	if sh.Id, err = c.Uint16(); err != nil {
		return sh, err
	}
	if sh.Length, err = c.Uint16(); err != nil {
		return sh, err
	}
	if sh.Length <= setHeaderLength {
		return sh, malformed("%w: %d", ErrSetTooShort, sh.Length)
	}
	return sh, nil
}

const (
	// SetIdTemplate is the set id for a TemplateSet.
	SetIdTemplate uint16 = 2
	// SetIdOptionsTemplate is the set id for an OptionsTemplateSet.
	SetIdOptionsTemplate uint16 = 3
	// setIdReservedMax is the highest set id still reserved by IANA; ids in
	// (SetIdOptionsTemplate, setIdReservedMax] are not assigned a meaning
	// and are skipped rather than decoded as data.
	setIdReservedMax uint16 = 255
)
