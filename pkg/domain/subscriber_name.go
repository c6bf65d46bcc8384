package domain

import (
	"strings"

	"github.com/rivo/uniseg"
)

// MaxSubscriberNameGraphemes bounds a name in user-perceived characters.
const MaxSubscriberNameGraphemes = 256

// forbiddenNameRunes are rejected anywhere in a name.
const forbiddenNameRunes = `/()"<>\{}`

// SubscriberName is a display name that has passed ParseSubscriberName.
//
// Invariants:
//   - not empty after trimming surrounding whitespace
//   - at most MaxSubscriberNameGraphemes grapheme clusters
//   - contains none of / ( ) " < > \ { }
//
// The wrapped string is the input as received; trimming is only used for the
// blank check.
type SubscriberName struct {
	raw string
}

// ParseSubscriberName validates s against the name policy and wraps it
// unchanged.
//
// Errors: returns *ValidationError. When several rules fail the kind is
// reported in the order KindNameBlank, KindNameTooLong,
// KindNameForbiddenCharacter.
func ParseSubscriberName(s string) (SubscriberName, error) {
	isBlank := strings.TrimSpace(s) == ""
	isTooLong := uniseg.GraphemeClusterCount(s) > MaxSubscriberNameGraphemes
	hasForbidden := strings.ContainsAny(s, forbiddenNameRunes)

	switch {
	case isBlank:
		return SubscriberName{}, &ValidationError{Kind: KindNameBlank, Input: s}
	case isTooLong:
		return SubscriberName{}, &ValidationError{Kind: KindNameTooLong, Input: s}
	case hasForbidden:
		return SubscriberName{}, &ValidationError{Kind: KindNameForbiddenCharacter, Input: s}
	}
	return SubscriberName{raw: s}, nil
}

// String returns the name exactly as it was accepted.
func (n SubscriberName) String() string {
	return n.raw
}

// IsZero reports whether n was never parsed.
func (n SubscriberName) IsZero() bool {
	return n.raw == ""
}
