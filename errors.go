package ipfix

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three-level error model: Incomplete (wire.ErrIncomplete,
// not listed here) signals "need more bytes"; the Err* values below are Malformed
// errors at set/template/record granularity, and are always wrapped with context
// via fmt.Errorf before being returned.
var (
	ErrMalformed = errors.New("malformed ipfix data")

	ErrUnknownVersion  = errors.New("unknown ipfix version")
	ErrMessageTooShort = errors.New("message shorter than header")
	ErrSetTooShort     = errors.New("set shorter than set header")

	ErrTemplateNotFound = errors.New("template not found")

	ErrFieldCountInvalid               = errors.New("field count must not be zero")
	ErrScopeFieldCountMismatch         = errors.New("scope field count does not match number of scope fields")
	ErrFieldCountMismatch              = errors.New("field count does not match number of fields")
	ErrInformationElementNotFound      = errors.New("information element not found in registry")
	ErrFieldLengthInvalid              = errors.New("field length must not be zero")
	ErrFieldLengthMismatch             = errors.New("field length not valid for information element type")
	ErrFieldLengthNotImplemented       = errors.New("reduced-size encoding of length 3, 5, 6, or 7 is not implemented")
	ErrTypeNotImplemented              = errors.New("basicList, subTemplateList, and subTemplateMultiList are not implemented")
	ErrEnterpriseNumbersNotImplemented = errors.New("enterprise-specific information elements are not implemented")
	ErrWithdrawalUnknown               = errors.New("withdrawal of unknown template")
	ErrRedefinitionDifferent           = errors.New("conflicting redefinition of known template")

	ErrBoolInvalid   = errors.New("invalid boolean encoding")
	ErrStringNotUTF8 = errors.New("string field is not valid utf-8")
)

func templateNotFound(observationDomainID uint32, templateID uint16) error {
	return fmt.Errorf("%w: template %d in observation domain %d", ErrTemplateNotFound, templateID, observationDomainID)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}
