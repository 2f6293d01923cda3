package ipfix

import (
	"errors"

	"github.com/flowlens/ipfixcore/wire"
)

// Message is one decoded IPFIX message: its header, and every set packed
// into it.
type Message struct {
	MessageHeader
	Sets []Set
}

// ParseMessage decodes one IPFIX message from the front of buf. It returns
// three distinct outcomes: (msg, rest, nil) on success, (nil, buf,
// wrapped wire.ErrIncomplete) when buf does not yet hold a full message —
// the caller should read more bytes and retry with the same buf — and
// (nil, buf, wrapped ErrMalformed) when the header or a set boundary is
// corrupt in a way that desynchronizes the stream and cannot be resumed.
//
// A malformed template or options-template record, by contrast, does not
// abort the message: the set it occurred in is still returned, with its
// Err field set, because the set's own declared length already bounds
// where the next set starts.
func ParseMessage(buf []byte) (msg *Message, rest []byte, err error) {
	c := wire.NewCursor(buf)

	header, err := parseMessageHeader(c)
	if err != nil {
		return nil, buf, err
	}

	bodyLen := int(header.Length) - messageHeaderLength
	if c.Remaining() < bodyLen {
		return nil, buf, &wire.IncompleteError{Need: bodyLen - c.Remaining()}
	}

	body, _ := c.Bytes(bodyLen)
	sets, err := parseSets(body)
	if err != nil {
		return nil, buf, err
	}

	return &Message{MessageHeader: header, Sets: sets}, c.Rest(), nil
}

func parseSets(body []byte) ([]Set, error) {
	sc := wire.NewCursor(body)
	var sets []Set
	for sc.Remaining() > 0 {
		if sc.Remaining() < setHeaderLength {
			return nil, malformed("%w: %d trailing bytes", ErrSetTooShort, sc.Remaining())
		}
		sh, err := parseSetHeader(sc)
		if err != nil {
			return nil, err
		}

		setBodyLen := sh.Length - setHeaderLength
		if sc.Remaining() < int(setBodyLen) {
			return nil, malformed("set %d: declared length %d exceeds message", sh.Id, sh.Length)
		}
		setBody, _ := sc.Bytes(int(setBodyLen))

		set := Set{Header: sh}
		switch {
		case sh.Id == SetIdTemplate:
			trs, err := parseTemplateRecords(setBody)
			if err != nil {
				set.Err = asSetError(err)
			} else {
				set.TemplateRecords = trs
			}
		case sh.Id == SetIdOptionsTemplate:
			otrs, err := parseOptionsTemplateRecords(setBody)
			if err != nil {
				set.Err = asSetError(err)
			} else {
				set.OptionsTemplateRecords = otrs
			}
		case sh.Id > SetIdOptionsTemplate && sh.Id <= setIdReservedMax:
			// reserved set id range, no defined meaning: skip
		default:
			set.Data = setBody
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// asSetError converts an error surfaced while decoding a set's own body
// (which is fully buffered, so a wire.ErrIncomplete there means the
// records simply didn't fit the set's declared length, not that more
// stream bytes are needed) into a set-scoped Malformed error.
func asSetError(err error) error {
	if errors.Is(err, wire.ErrIncomplete) {
		return malformed("set body too short for its records: %v", err)
	}
	return err
}
