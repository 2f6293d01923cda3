package ipfix

import (
	"github.com/flowlens/ipfixcore/iana"
	"github.com/flowlens/ipfixcore/wire"
)

// DataRecord is one decoded data record: the template it was decoded
// against, and its field values in the same order as the template's field
// list (scope fields first, for an options template).
type DataRecord struct {
	TemplateKey TemplateKey
	Fields      []FieldSpecifier
	Values      []Value
}

// Map renders a DataRecord the way the wire vocabulary this collector
// speaks keys a record's values: by information element id, so a consumer
// can look up "what is sourceIPv4Address (id 8) in this record" without
// caring about field order.
func (r DataRecord) Map() map[uint16]Value {
	out := make(map[uint16]Value, len(r.Fields))
	for i, fs := range r.Fields {
		out[fs.ElementID()] = r.Values[i]
	}
	return out
}

// DecoderOptions tunes how strictly DecodeDataRecords treats a data set's
// trailing bytes.
type DecoderOptions struct {
	// Lenient allows up to 3 trailing padding bytes after the last record
	// in a set, rather than requiring the set body be exactly exhausted.
	// Off by default: a wire contract is worth being precise about before
	// being permissive about it.
	Lenient bool
}

// DecodeDataRecords decodes every record packed into a DataSet's body
// against tmpl, stopping when the body is exhausted (or, in lenient mode,
// when 3 or fewer trailing bytes remain).
func DecodeDataRecords(body []byte, tmpl Template, opts DecoderOptions) ([]DataRecord, error) {
	c := wire.NewCursor(body)
	var records []DataRecord
	for c.Remaining() > 0 {
		if opts.Lenient && c.Remaining() <= 3 {
			break
		}
		rec, err := decodeDataRecord(c, tmpl)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeDataRecord(c *wire.Cursor, tmpl Template) (DataRecord, error) {
	values := make([]Value, 0, len(tmpl.Fields))
	for _, fs := range tmpl.Fields {
		el, ok := iana.Lookup(fs.ElementID())
		if !ok {
			return DataRecord{}, malformed("%w: element %d", ErrInformationElementNotFound, fs.ElementID())
		}

		var raw []byte
		var err error
		if fs.Length == variableLength {
			raw, err = c.VarBytes()
		} else {
			raw, err = c.Bytes(int(fs.Length))
		}
		if err != nil {
			return DataRecord{}, err
		}

		v, err := decodeField(el.Type, raw)
		if err != nil {
			return DataRecord{}, malformed("element %d: %v", fs.ElementID(), err)
		}
		values = append(values, v)
	}
	return DataRecord{TemplateKey: tmpl.Key, Fields: tmpl.Fields, Values: values}, nil
}
