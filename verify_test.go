package ipfix

import (
	"errors"
	"testing"
)

func TestVerifyTemplateOk(t *testing.T) {
	err := VerifyTemplate(2, []FieldSpecifier{
		{InformationElementId: 8, Length: 4},  // sourceIPv4Address
		{InformationElementId: 7, Length: 2},  // sourceTransportPort
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestVerifyTemplateFieldCountInvalid(t *testing.T) {
	if err := VerifyTemplate(0, nil); !errors.Is(err, ErrFieldCountInvalid) {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyTemplateFieldCountMismatch(t *testing.T) {
	err := VerifyTemplate(2, []FieldSpecifier{{InformationElementId: 8, Length: 4}})
	if !errors.Is(err, ErrFieldCountMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyTemplateUnknownElement(t *testing.T) {
	err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 65000, Length: 4}})
	if !errors.Is(err, ErrInformationElementNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyTemplateFieldLengthMismatch(t *testing.T) {
	err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 8, Length: 8}})
	if !errors.Is(err, ErrFieldLengthMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyTemplateReducedSizeRejected(t *testing.T) {
	for _, length := range []uint16{3, 5, 6, 7} {
		err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 1, Length: length}})
		if !errors.Is(err, ErrFieldLengthNotImplemented) {
			t.Fatalf("length %d: got %v", length, err)
		}
	}
}

func TestVerifyTemplateReducedSizeIntegerAccepted(t *testing.T) {
	// octetDeltaCount (id 1) is unsigned64, canonical length 8; 1/2/4/8
	// must all be accepted as reduced-size encodings.
	for _, length := range []uint16{1, 2, 4, 8} {
		err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 1, Length: length}})
		if err != nil {
			t.Fatalf("length %d: got %v", length, err)
		}
	}
}

func TestVerifyTemplateReducedSizeIntegerTooLongRejected(t *testing.T) {
	// protocolIdentifier (id 4) is unsigned8, canonical length 1; a
	// longer power-of-two length is not a "reduction" and must still be
	// rejected.
	err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 4, Length: 2}})
	if !errors.Is(err, ErrFieldLengthMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyTemplateFloat64WidenedFromBinary32Accepted(t *testing.T) {
	// samplingProbability (id 311) is float64; RFC 7011 §6.1.2 allows it
	// to be carried as a widened binary32 at length 4.
	err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 311, Length: 4}})
	if err != nil {
		t.Fatal(err)
	}
}

func TestVerifyTemplateFloat64CanonicalLengthAccepted(t *testing.T) {
	err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 311, Length: 8}})
	if err != nil {
		t.Fatal(err)
	}
}

func TestVerifyTemplateFloat64OtherLengthRejected(t *testing.T) {
	err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 311, Length: 2}})
	if !errors.Is(err, ErrFieldLengthMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyTemplateEnterpriseRejected(t *testing.T) {
	fs := FieldSpecifier{InformationElementId: 1 | enterpriseBit, Length: 8, EnterpriseNumber: 12345}
	err := VerifyTemplate(1, []FieldSpecifier{fs})
	if !errors.Is(err, ErrEnterpriseNumbersNotImplemented) {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyTemplateVariableLengthStringOk(t *testing.T) {
	err := VerifyTemplate(1, []FieldSpecifier{{InformationElementId: 82, Length: variableLength}}) // interfaceName
	if err != nil {
		t.Fatal(err)
	}
}

func TestVerifyOptionsTemplateScopeFieldCountMismatch(t *testing.T) {
	fields := []FieldSpecifier{{InformationElementId: 145, Length: 2}, {InformationElementId: 1, Length: 8}}
	err := VerifyOptionsTemplate(2, 0, fields)
	if !errors.Is(err, ErrScopeFieldCountMismatch) {
		t.Fatalf("got %v", err)
	}
	err = VerifyOptionsTemplate(2, 3, fields)
	if !errors.Is(err, ErrScopeFieldCountMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyOptionsTemplateOk(t *testing.T) {
	fields := []FieldSpecifier{{InformationElementId: 145, Length: 2}, {InformationElementId: 1, Length: 8}}
	if err := VerifyOptionsTemplate(2, 1, fields); err != nil {
		t.Fatal(err)
	}
}
