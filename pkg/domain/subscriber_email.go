package domain

// SubscriberEmail is an email address that has passed ParseSubscriberEmail.
// Invariant: the wrapped string is a syntactically valid addr-spec, stored
// exactly as received.
//
// Usage: construct via ParseSubscriberEmail at trust boundaries. The zero
// value is not a valid email; use IsZero to detect it.
type SubscriberEmail struct {
	raw string
}

// ParseSubscriberEmail validates s as an email address and wraps it unchanged.
// No case folding, trimming or DNS lookup takes place.
//
// Errors: returns *ValidationError with KindInvalidEmailFormat.
func ParseSubscriberEmail(s string) (SubscriberEmail, error) {
	if !isEmailAddress(s) {
		return SubscriberEmail{}, &ValidationError{Kind: KindInvalidEmailFormat, Input: s}
	}
	return SubscriberEmail{raw: s}, nil
}

// String returns the address exactly as it was accepted.
func (e SubscriberEmail) String() string {
	return e.raw
}

// IsZero reports whether e was never parsed.
func (e SubscriberEmail) IsZero() bool {
	return e.raw == ""
}
