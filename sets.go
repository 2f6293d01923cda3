package ipfix

// Set is one parsed set: its header, plus whichever of TemplateRecords,
// OptionsTemplateRecords, or Data is populated depending on Header.Id. Err
// holds a content-level Malformed error confined to this set (e.g. a
// template record that didn't fit evenly into the set's declared length) —
// such an error does not abort the message, since the set's own bounds are
// already known and the parser can skip straight past it to the next set.
type Set struct {
	Header                 SetHeader
	TemplateRecords        []TemplateRecord
	OptionsTemplateRecords []OptionsTemplateRecord
	Data                   []byte
	Err                    error
}

func (s Set) IsTemplateSet() bool        { return s.Header.Id == SetIdTemplate }
func (s Set) IsOptionsTemplateSet() bool { return s.Header.Id == SetIdOptionsTemplate }
func (s Set) IsReserved() bool {
	return s.Header.Id > SetIdOptionsTemplate && s.Header.Id <= setIdReservedMax
}
func (s Set) IsDataSet() bool { return s.Header.Id > setIdReservedMax }
