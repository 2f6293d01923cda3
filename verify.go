package ipfix

import "github.com/flowlens/ipfixcore/iana"

// VerifyTemplate checks a template definition against the information
// element registry before it is allowed into a TemplateCache: every field
// must name a known, decodable information element, and its declared
// length must agree with that element's abstract type. Verification
// applies only to definitions (FieldCount > 0); a withdrawal record
// (FieldCount == 0) is a cache operation, not a shape to verify.
func VerifyTemplate(fieldCount uint16, fields []FieldSpecifier) error {
	if fieldCount == 0 {
		return ErrFieldCountInvalid
	}
	if int(fieldCount) != len(fields) {
		return ErrFieldCountMismatch
	}
	return verifyFields(fields)
}

// VerifyOptionsTemplate checks an options template definition: its scope
// field count must be nonzero and not exceed the total field count, then
// every field (scope and non-scope alike) is checked the same way a plain
// template's fields are.
func VerifyOptionsTemplate(fieldCount, scopeFieldCount uint16, fields []FieldSpecifier) error {
	if fieldCount == 0 {
		return ErrFieldCountInvalid
	}
	if int(fieldCount) != len(fields) {
		return ErrFieldCountMismatch
	}
	if scopeFieldCount == 0 || scopeFieldCount > fieldCount {
		return ErrScopeFieldCountMismatch
	}
	return verifyFields(fields)
}

func verifyFields(fields []FieldSpecifier) error {
	for _, fs := range fields {
		if err := verifyField(fs); err != nil {
			return err
		}
	}
	return nil
}

func verifyField(fs FieldSpecifier) error {
	if fs.Enterprise() {
		return ErrEnterpriseNumbersNotImplemented
	}

	el, ok := iana.Lookup(fs.ElementID())
	if !ok {
		return ErrInformationElementNotFound
	}

	canonical, ok := iana.FixedLength(el.Type)
	if !ok {
		return ErrTypeNotImplemented
	}

	if fs.Length == 0 {
		return ErrFieldLengthInvalid
	}

	if fs.Length == variableLength {
		if canonical != 0 {
			// a fixed-width type (e.g. unsigned32) cannot be carried as a
			// variable-length field; only octetArray/string may be.
			return ErrFieldLengthMismatch
		}
		return nil
	}

	if canonical == 0 {
		// octetArray/string at a fixed declared length: any length is valid.
		return nil
	}

	switch fs.Length {
	case 3, 5, 6, 7:
		return ErrFieldLengthNotImplemented
	}

	// Integer elements may be carried at any power-of-two length up to
	// their canonical width (RFC 7011 §6.1.1 reduced-size encoding),
	// not only at their natural width.
	if iana.IsInteger(el.Type) {
		switch fs.Length {
		case 1, 2, 4, 8:
			if int(fs.Length) <= canonical {
				return nil
			}
		}
		return ErrFieldLengthMismatch
	}

	// float64 may additionally be carried as a widened binary32 (RFC
	// 7011 §6.1.2).
	if el.Type == iana.Float64 && fs.Length == 4 {
		return nil
	}

	if int(fs.Length) != canonical {
		return ErrFieldLengthMismatch
	}
	return nil
}
