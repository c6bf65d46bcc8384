package domain

import (
	"errors"
	"fmt"
)

// ValidationKind identifies which rule rejected a subscriber field.
type ValidationKind string

const (
	KindInvalidEmailFormat     ValidationKind = "invalid_email_format"
	KindNameBlank              ValidationKind = "name_blank"
	KindNameTooLong            ValidationKind = "name_too_long"
	KindNameForbiddenCharacter ValidationKind = "name_forbidden_character"
)

// Field returns the form field the kind applies to.
func (k ValidationKind) Field() string {
	if k == KindInvalidEmailFormat {
		return "email"
	}
	return "name"
}

// ValidationError is returned by the subscriber parsers. Input is the
// offending value exactly as received.
type ValidationError struct {
	Kind  ValidationKind
	Input string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is not a valid subscriber %s.", e.Input, e.Kind.Field())
}

// Field returns "email" or "name".
func (e *ValidationError) Field() string {
	return e.Kind.Field()
}

// IsValidationKind reports whether err wraps a ValidationError of kind.
func IsValidationKind(err error, kind ValidationKind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}
