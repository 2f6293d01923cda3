// Package iana is the information element registry: it maps an IPFIX
// information element id to its name and abstract data type, the table a
// template verifier and data-record decoder both consult to know how many
// bytes a field is and how to interpret them.
package iana

import (
	"encoding/csv"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed elements.csv
var elementsCSV string

// AbstractDataType is one of the RFC 7012 abstract data types this registry
// assigns to an information element. Only the types this collector actually
// decodes are represented; basicList/subTemplateList/subTemplateMultiList
// element types are out of scope and never appear in the embedded table.
type AbstractDataType string

const (
	Unsigned8            AbstractDataType = "unsigned8"
	Unsigned16           AbstractDataType = "unsigned16"
	Unsigned32           AbstractDataType = "unsigned32"
	Unsigned64           AbstractDataType = "unsigned64"
	Signed8              AbstractDataType = "signed8"
	Signed16             AbstractDataType = "signed16"
	Signed32             AbstractDataType = "signed32"
	Signed64             AbstractDataType = "signed64"
	Float32              AbstractDataType = "float32"
	Float64              AbstractDataType = "float64"
	Boolean              AbstractDataType = "boolean"
	MacAddress           AbstractDataType = "macAddress"
	OctetArray           AbstractDataType = "octetArray"
	String               AbstractDataType = "string"
	DateTimeSeconds      AbstractDataType = "dateTimeSeconds"
	DateTimeMilliseconds AbstractDataType = "dateTimeMilliseconds"
	DateTimeMicroseconds AbstractDataType = "dateTimeMicroseconds"
	DateTimeNanoseconds  AbstractDataType = "dateTimeNanoseconds"
	Ipv4Address          AbstractDataType = "ipv4Address"
	Ipv6Address          AbstractDataType = "ipv6Address"
)

// Element is one row of the information element registry.
type Element struct {
	ID   uint16
	Name string
	Type AbstractDataType
}

var byID = map[uint16]Element{}

func init() {
	r := csv.NewReader(strings.NewReader(elementsCSV))
	records, err := r.ReadAll()
	if err != nil {
		panic(fmt.Sprintf("iana: malformed embedded registry: %v", err))
	}
	for i, row := range records {
		if i == 0 {
			continue // header: id,name,type
		}
		if len(row) != 3 {
			panic(fmt.Sprintf("iana: malformed registry row %d: %v", i, row))
		}
		id, err := strconv.ParseUint(row[0], 10, 16)
		if err != nil {
			panic(fmt.Sprintf("iana: bad id on row %d: %v", i, err))
		}
		el := Element{ID: uint16(id), Name: row[1], Type: AbstractDataType(row[2])}
		byID[el.ID] = el
	}
}

// Lookup returns the registered element for id, if any.
func Lookup(id uint16) (Element, bool) {
	el, ok := byID[id]
	return el, ok
}

// IsInteger reports whether t is one of the signed/unsigned integer
// abstract types, the only row of the registry RFC 7011 §6.1.1 lets a
// collector accept at a reduced-size (non-canonical) length.
func IsInteger(t AbstractDataType) bool {
	switch t {
	case Unsigned8, Unsigned16, Unsigned32, Unsigned64, Signed8, Signed16, Signed32, Signed64:
		return true
	default:
		return false
	}
}

// FixedLength returns the canonical on-wire length of an element's abstract
// data type, or 0 for types without a single fixed length (octetArray,
// string), which are only ever carried as variable-length fields in this
// collector. ok is false for types this package does not decode.
func FixedLength(t AbstractDataType) (length int, ok bool) {
	switch t {
	case Unsigned8, Signed8, Boolean:
		return 1, true
	case Unsigned16, Signed16:
		return 2, true
	case Unsigned32, Signed32, Float32, DateTimeSeconds, Ipv4Address:
		return 4, true
	case Unsigned64, Signed64, Float64, DateTimeMilliseconds, DateTimeMicroseconds, DateTimeNanoseconds:
		return 8, true
	case MacAddress:
		return 6, true
	case Ipv6Address:
		return 16, true
	case OctetArray, String:
		return 0, true
	default:
		return 0, false
	}
}
