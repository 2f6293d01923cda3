package ipfix

import "github.com/flowlens/ipfixcore/wire"

// OptionsTemplateRecord is a template whose field list is split into scope
// fields (naming what the option's data describes, e.g. a template id or an
// interface) followed by non-scope fields, per RFC 7011 §3.4.2.2.
type OptionsTemplateRecord struct {
	TemplateId      uint16
	FieldCount      uint16
	ScopeFieldCount uint16
	Fields          []FieldSpecifier // scope fields first, then the rest
}

// optionsTemplateRecordHeaderLength is id + field count + scope field
// count, 6 bytes.
const optionsTemplateRecordHeaderLength = 6

func parseOptionsTemplateRecord(c *wire.Cursor) (OptionsTemplateRecord, error) {
	var tr OptionsTemplateRecord
	var err error
	if tr.TemplateId, err = c.Uint16(); err != nil {
		return tr, err
	}
	if tr.FieldCount, err = c.Uint16(); err != nil {
		return tr, err
	}
	if tr.ScopeFieldCount, err = c.Uint16(); err != nil {
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

func encodeOptionsTemplateRecord(tr OptionsTemplateRecord) []byte {
	b := make([]byte, 0, optionsTemplateRecordHeaderLength+len(tr.Fields)*4)
	b = appendUint16(b, tr.TemplateId)
	b = appendUint16(b, tr.FieldCount)
	b = appendUint16(b, tr.ScopeFieldCount)
	for _, f := range tr.Fields {
		b = append(b, encodeFieldSpecifier(f)...)
	}
	return b
}

func parseOptionsTemplateRecords(body []byte) ([]OptionsTemplateRecord, error) {
	c := wire.NewCursor(body)
	var records []OptionsTemplateRecord
	for c.Remaining() > 0 {
		tr, err := parseOptionsTemplateRecord(c)
		if err != nil {
			return nil, err
		}
		records = append(records, tr)
	}
	return records, nil
}

// ScopeFields returns the leading scope portion of Fields.
func (tr OptionsTemplateRecord) ScopeFields() []FieldSpecifier {
	return tr.Fields[:tr.ScopeFieldCount]
}

// NonScopeFields returns the trailing, non-scope portion of Fields.
func (tr OptionsTemplateRecord) NonScopeFields() []FieldSpecifier {
	return tr.Fields[tr.ScopeFieldCount:]
}
