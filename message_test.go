package ipfix

import (
	"errors"
	"testing"

	"github.com/flowlens/ipfixcore/iana/version"
	"github.com/flowlens/ipfixcore/wire"
)

func buildMessageHeader(length uint16) []byte {
	b := make([]byte, 0, messageHeaderLength)
	b = appendUint16(b, uint16(version.IPFIX))
	b = appendUint16(b, length)
	b = append(b, 0, 0, 0, 1) // exportTime
	b = append(b, 0, 0, 0, 1) // sequenceNumber
	b = append(b, 0, 0, 0, 7) // observationDomainId
	return b
}

func buildMessage(sets ...[]byte) []byte {
	total := messageHeaderLength
	for _, s := range sets {
		total += len(s)
	}
	msg := buildMessageHeader(uint16(total))
	for _, s := range sets {
		msg = append(msg, s...)
	}
	return msg
}

func buildTemplateSet(records ...TemplateRecord) []byte {
	var body []byte
	for _, r := range records {
		body = append(body, encodeTemplateRecord(r)...)
	}
	setHeader := make([]byte, 0, 4)
	setHeader = appendUint16(setHeader, SetIdTemplate)
	setHeader = appendUint16(setHeader, uint16(setHeaderLength+len(body)))
	return append(setHeader, body...)
}

func buildDataSet(templateId uint16, body []byte) []byte {
	setHeader := make([]byte, 0, 4)
	setHeader = appendUint16(setHeader, templateId)
	setHeader = appendUint16(setHeader, uint16(setHeaderLength+len(body)))
	return append(setHeader, body...)
}

func TestParseMessageIncompleteHeader(t *testing.T) {
	_, rest, err := ParseMessage([]byte{0, 10, 0, 20})
	if !errors.Is(err, wire.ErrIncomplete) {
		t.Fatalf("got %v", err)
	}
	if len(rest) != 4 {
		t.Fatalf("expected rest preserved on incomplete, got %d bytes", len(rest))
	}
}

func TestParseMessageUnknownVersion(t *testing.T) {
	buf := buildMessageHeader(16)
	buf[0], buf[1] = 0, 9 // version 9
	_, _, err := ParseMessage(buf)
	if !errors.Is(err, ErrMalformed) || !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("got %v", err)
	}
}

func TestParseMessageIncompleteBody(t *testing.T) {
	buf := buildMessageHeader(32) // claims 32 bytes total, only header present
	_, rest, err := ParseMessage(buf)
	var ie *wire.IncompleteError
	if !errors.As(err, &ie) {
		t.Fatalf("got %v", err)
	}
	if ie.Need != 16 {
		t.Fatalf("got need=%d, want 16", ie.Need)
	}
	if len(rest) != len(buf) {
		t.Fatal("expected full buffer preserved for retry")
	}
}

func TestParseMessageTemplateSet(t *testing.T) {
	tr := TemplateRecord{TemplateId: 256, FieldCount: 1, Fields: []FieldSpecifier{{InformationElementId: 8, Length: 4}}}
	buf := buildMessage(buildTemplateSet(tr))

	msg, rest, err := ParseMessage(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no trailing bytes, got %d", len(rest))
	}
	if len(msg.Sets) != 1 || !msg.Sets[0].IsTemplateSet() {
		t.Fatalf("got %+v", msg.Sets)
	}
	if msg.Sets[0].Err != nil {
		t.Fatal(msg.Sets[0].Err)
	}
	if len(msg.Sets[0].TemplateRecords) != 1 || msg.Sets[0].TemplateRecords[0].TemplateId != 256 {
		t.Fatalf("got %+v", msg.Sets[0].TemplateRecords)
	}
}

func TestParseMessageDataSetAndRest(t *testing.T) {
	dataSet := buildDataSet(256, []byte{127, 0, 0, 1})
	buf := buildMessage(dataSet)
	buf = append(buf, 0xAA, 0xBB) // next message's leading bytes

	msg, rest, err := ParseMessage(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Sets) != 1 || !msg.Sets[0].IsDataSet() {
		t.Fatalf("got %+v", msg.Sets)
	}
	if string(msg.Sets[0].Data) != string([]byte{127, 0, 0, 1}) {
		t.Fatalf("got %v", msg.Sets[0].Data)
	}
	if len(rest) != 2 || rest[0] != 0xAA {
		t.Fatalf("got rest %v", rest)
	}
}

func TestParseMessageSetTooShort(t *testing.T) {
	badSet := []byte{0x01, 0x00, 0x00, 0x02} // set id 256, length 2 (< header length 4)
	buf := buildMessage(badSet)

	_, _, err := ParseMessage(buf)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v", err)
	}
}

func TestParseMessageMultipleSets(t *testing.T) {
	tr := TemplateRecord{TemplateId: 256, FieldCount: 1, Fields: []FieldSpecifier{{InformationElementId: 8, Length: 4}}}
	buf := buildMessage(buildTemplateSet(tr), buildDataSet(256, []byte{10, 0, 0, 1}))

	msg, _, err := ParseMessage(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Sets) != 2 {
		t.Fatalf("got %d sets", len(msg.Sets))
	}
	if !msg.Sets[0].IsTemplateSet() || !msg.Sets[1].IsDataSet() {
		t.Fatalf("got %+v", msg.Sets)
	}
}

func TestParseMessageReservedSetIdSkipped(t *testing.T) {
	reserved := []byte{0x00, 0x05, 0x00, 0x06, 0xFF, 0xFF} // set id 5 (reserved), 2 bytes of payload
	buf := buildMessage(reserved)

	msg, _, err := ParseMessage(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Sets) != 1 || !msg.Sets[0].IsReserved() {
		t.Fatalf("got %+v", msg.Sets)
	}
}
