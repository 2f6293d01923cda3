package ipfix

import "github.com/flowlens/ipfixcore/wire"

// enterpriseBit marks an information element id as enterprise-specific
// (RFC 7011 §3.2); this collector rejects any template carrying one
// (ErrEnterpriseNumbersNotImplemented), but the framer still has to parse
// past the extra 4-byte enterprise number to stay in sync with the stream.
const enterpriseBit uint16 = 0x8000

// variableLength is the FieldSpecifier.Length sentinel meaning "this field
// is variable-length; consult the record's own length prefix instead."
const variableLength uint16 = 0xFFFF

// FieldSpecifier is one entry of a template's field list: which
// information element, how long it is on the wire, and (if the enterprise
// bit is set) whose enterprise number defines it.
type FieldSpecifier struct {
	InformationElementId uint16
	Length               uint16
	EnterpriseNumber     uint32
}

func (f FieldSpecifier) Enterprise() bool {
	return f.InformationElementId&enterpriseBit != 0
}

// ElementID returns the information element id with the enterprise bit
// masked off.
func (f FieldSpecifier) ElementID() uint16 {
	return f.InformationElementId &^ enterpriseBit
}

func parseFieldSpecifier(c *wire.Cursor) (FieldSpecifier, error) {
	raw, err := c.Uint16()
	if err != nil {
		return FieldSpecifier{}, err
	}
	length, err := c.Uint16()
	if err != nil {
		return FieldSpecifier{}, err
	}
	fs := FieldSpecifier{InformationElementId: raw, Length: length}
	if fs.Enterprise() {
		en, err := c.Uint32()
		if err != nil {
			return FieldSpecifier{}, err
		}
		fs.EnterpriseNumber = en
	}
	return fs, nil
}

func encodeFieldSpecifier(f FieldSpecifier) []byte {
	b := make([]byte, 0, 8)
	b = appendUint16(b, f.InformationElementId)
	b = appendUint16(b, f.Length)
	if f.Enterprise() {
		b = appendUint32(b, f.EnterpriseNumber)
	}
	return b
}

func appendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
