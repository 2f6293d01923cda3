package ipfix

import "github.com/flowlens/ipfixcore/wire"

// TemplateRecord is one template definition carried in a TemplateSet: an id
// naming it within its observation domain, and the ordered field list data
// records referencing it must decode against.
type TemplateRecord struct {
	TemplateId uint16
	FieldCount uint16
	Fields     []FieldSpecifier
}

// templateRecordHeaderLength is id + field count, 4 bytes.
const templateRecordHeaderLength = 4

func parseTemplateRecord(c *wire.Cursor) (TemplateRecord, error) {
	var tr TemplateRecord
	var err error
	if tr.TemplateId, err = c.Uint16(); err != nil {
		return tr, err
	}
	if tr.FieldCount, err = c.Uint16(); err != nil {
		return tr, err
	}
	tr.Fields = make([]FieldSpecifier, 0, tr.FieldCount)
	for i := uint16(0); i < tr.FieldCount; i++ {
		fs, err := parseFieldSpecifier(c)
		if err != nil {
			return tr, err
		}
		tr.Fields = append(tr.Fields, fs)
	}
	return tr, nil
}

func encodeTemplateRecord(tr TemplateRecord) []byte {
	b := make([]byte, 0, templateRecordHeaderLength+len(tr.Fields)*4)
	b = appendUint16(b, tr.TemplateId)
	b = appendUint16(b, tr.FieldCount)
	for _, f := range tr.Fields {
		b = append(b, encodeFieldSpecifier(f)...)
	}
	return b
}

// parseTemplateRecords decodes every template record packed into a
// TemplateSet's body, one after another until the body is exhausted.
func parseTemplateRecords(body []byte) ([]TemplateRecord, error) {
	c := wire.NewCursor(body)
	var records []TemplateRecord
	for c.Remaining() > 0 {
		tr, err := parseTemplateRecord(c)
		if err != nil {
			return nil, err
		}
		records = append(records, tr)
	}
	return records, nil
}
