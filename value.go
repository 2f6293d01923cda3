package ipfix

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"unicode/utf8"

	"github.com/flowlens/ipfixcore/iana"
	"github.com/flowlens/ipfixcore/wire"
)

// ValueKind tags the representation a decoded Value holds. It is a closed
// set mirroring the abstract data types this collector actually decodes;
// basicList, subTemplateList, and subTemplateMultiList never produce a
// Value, since the verifier rejects any template field of those types
// before a record carrying one is ever decoded.
type ValueKind uint8

const (
	KindUnsigned ValueKind = iota
	KindSigned
	KindFloat
	KindBool
	KindMacAddress
	KindOctetArray
	KindString
	KindDateTimeSeconds
	KindDateTimeMilliseconds
	KindDateTimeFraction // dateTimeMicroseconds / dateTimeNanoseconds (NTP seconds+fraction)
	KindIPv4
	KindIPv6
)

// Value is a tagged union over the field values this decoder produces.
// Accessors panic if called against the wrong Kind, the same contract the
// original per-type decoders exposed via their typed Value() method — a
// caller is expected to have checked Kind first, or to know the
// information element's type ahead of time from the registry.
type Value struct {
	kind     ValueKind
	u        uint64
	i        int64
	f        float64
	b        bool
	bytes    []byte // macAddress (6), octetArray, ipv4 (4), ipv6 (16)
	s        string
	fraction uint32 // only meaningful for KindDateTimeFraction
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) Uint() uint64 {
	if v.kind != KindUnsigned {
		panic(fmt.Sprintf("ipfix: Uint() called on Value of kind %d", v.kind))
	}
	return v.u
}

func (v Value) Int() int64 {
	if v.kind != KindSigned {
		panic(fmt.Sprintf("ipfix: Int() called on Value of kind %d", v.kind))
	}
	return v.i
}

func (v Value) Float() float64 {
	if v.kind != KindFloat {
		panic(fmt.Sprintf("ipfix: Float() called on Value of kind %d", v.kind))
	}
	return v.f
}

func (v Value) Bool() bool {
	if v.kind != KindBool {
		panic(fmt.Sprintf("ipfix: Bool() called on Value of kind %d", v.kind))
	}
	return v.b
}

func (v Value) Bytes() []byte {
	switch v.kind {
	case KindMacAddress, KindOctetArray, KindIPv4, KindIPv6:
		return v.bytes
	default:
		panic(fmt.Sprintf("ipfix: Bytes() called on Value of kind %d", v.kind))
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindMacAddress:
		return net.HardwareAddr(v.bytes).String()
	case KindIPv4, KindIPv6:
		addr, _ := netip.AddrFromSlice(v.bytes)
		return addr.String()
	default:
		panic(fmt.Sprintf("ipfix: String() called on Value of kind %d", v.kind))
	}
}

// SecondsAndFraction returns the raw NTP-style 32-bit seconds/fraction pair
// carried by a dateTimeMicroseconds or dateTimeNanoseconds value.
func (v Value) SecondsAndFraction() (seconds, fraction uint32) {
	if v.kind != KindDateTimeFraction {
		panic(fmt.Sprintf("ipfix: SecondsAndFraction() called on Value of kind %d", v.kind))
	}
	return uint32(v.u), v.fraction
}

// Render returns a JSON-marshalable representation matching the wire
// vocabulary's own notion of a "natural" encoding per type: numbers as
// numbers, MAC addresses as upper-case hyphenated octets, IP addresses in
// their canonical textual form, and sub-second timestamps as a two-element
// [seconds, fraction] pair.
func (v Value) Render() any {
	switch v.kind {
	case KindUnsigned:
		return v.u
	case KindSigned:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindMacAddress:
		b := v.bytes
		return fmt.Sprintf("%02X-%02X-%02X-%02X-%02X-%02X", b[0], b[1], b[2], b[3], b[4], b[5])
	case KindOctetArray:
		return v.bytes
	case KindString:
		return v.s
	case KindDateTimeSeconds:
		return v.u
	case KindDateTimeMilliseconds:
		return v.u
	case KindDateTimeFraction:
		return [2]uint32{uint32(v.u), v.fraction}
	case KindIPv4, KindIPv6:
		return v.String()
	default:
		return nil
	}
}

var _ json.Marshaler = Value{}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Render())
}

// decodeField interprets raw as an information element of abstract type t,
// dispatching on the type the way a single decodeField table entry covers
// what the interface-per-type DataType graph used to need one struct per
// type for. raw must already be exactly the field's on-wire length; callers
// are expected to have read that many bytes (fixed or variable) off a
// wire.Cursor before calling decodeField.
func decodeField(t iana.AbstractDataType, raw []byte) (Value, error) {
	switch t {
	case iana.Unsigned8, iana.Unsigned16, iana.Unsigned32, iana.Unsigned64:
		return Value{kind: KindUnsigned, u: beUint(raw)}, nil
	case iana.Signed8, iana.Signed16, iana.Signed32, iana.Signed64:
		return Value{kind: KindSigned, i: beInt(raw)}, nil
	case iana.Float32:
		c := wire.NewCursor(raw)
		f, err := c.Float32()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindFloat, f: float64(f)}, nil
	case iana.Float64:
		// RFC 7011 §6.1.2 allows a float64 element to be carried as a
		// widened binary32 in addition to its canonical binary64.
		if len(raw) == 4 {
			c := wire.NewCursor(raw)
			f, err := c.Float32()
			if err != nil {
				return Value{}, err
			}
			return Value{kind: KindFloat, f: float64(f)}, nil
		}
		c := wire.NewCursor(raw)
		f, err := c.Float64()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindFloat, f: f}, nil
	case iana.Boolean:
		switch raw[0] {
		case 1:
			return Value{kind: KindBool, b: true}, nil
		case 2:
			return Value{kind: KindBool, b: false}, nil
		default:
			return Value{}, ErrBoolInvalid
		}
	case iana.MacAddress:
		b := make([]byte, 6)
		copy(b, raw)
		return Value{kind: KindMacAddress, bytes: b}, nil
	case iana.Ipv4Address:
		b := make([]byte, 4)
		copy(b, raw)
		return Value{kind: KindIPv4, bytes: b}, nil
	case iana.Ipv6Address:
		b := make([]byte, 16)
		copy(b, raw)
		return Value{kind: KindIPv6, bytes: b}, nil
	case iana.OctetArray:
		b := make([]byte, len(raw))
		copy(b, raw)
		return Value{kind: KindOctetArray, bytes: b}, nil
	case iana.String:
		if !utf8.Valid(raw) {
			return Value{}, ErrStringNotUTF8
		}
		return Value{kind: KindString, s: string(raw)}, nil
	case iana.DateTimeSeconds:
		return Value{kind: KindDateTimeSeconds, u: beUint(raw)}, nil
	case iana.DateTimeMilliseconds:
		return Value{kind: KindDateTimeMilliseconds, u: beUint(raw)}, nil
	case iana.DateTimeMicroseconds:
		// RFC 7011 §6.1.9: 32-bit NTP seconds followed by a 32-bit
		// fraction whose low 11 bits are reserved and must be zeroed,
		// giving microsecond (not full NTP) resolution.
		return Value{
			kind:     KindDateTimeFraction,
			u:        uint64(beUint32(raw[0:4])),
			fraction: beUint32(raw[4:8]) & 0xFFFFF800,
		}, nil
	case iana.DateTimeNanoseconds:
		// RFC 7011 §6.1.10: 32-bit NTP seconds followed by a full
		// 32-bit fraction, no masking.
		return Value{
			kind:     KindDateTimeFraction,
			u:        uint64(beUint32(raw[0:4])),
			fraction: beUint32(raw[4:8]),
		}, nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrTypeNotImplemented, t)
	}
}

func beUint(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func beUint32(b []byte) uint32 {
	return uint32(beUint(b))
}

func beInt(b []byte) int64 {
	v := beUint(b)
	bits := uint(len(b)) * 8
	// sign-extend from the field's actual bit width
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

