//go:build go1.18

package domain

import (
	"strings"
	"testing"

	"github.com/rivo/uniseg"
)

// FuzzParseSubscriberName checks that accepted names always satisfy every
// invariant and are stored unchanged.
//
// Justification: trust boundary functions must handle arbitrary input safely.
func FuzzParseSubscriberName(f *testing.F) {
	f.Add("")
	f.Add(" ")
	f.Add("Maurice Ponte")
	f.Add(strings.Repeat("ë", 256))
	f.Add("<script>alert(1)</script>")
	f.Add(string([]byte{0xff, 0xfe}))

	f.Fuzz(func(t *testing.T, input string) {
		name, err := ParseSubscriberName(input)
		if err != nil {
			if !name.IsZero() {
				t.Error("rejected input returned a non-zero name")
			}
			return
		}
		if name.String() != input {
			t.Errorf("stored %q, want %q", name.String(), input)
		}
		if strings.TrimSpace(input) == "" {
			t.Error("blank name was accepted")
		}
		if uniseg.GraphemeClusterCount(input) > MaxSubscriberNameGraphemes {
			t.Error("over-long name was accepted")
		}
		if strings.ContainsAny(input, forbiddenNameRunes) {
			t.Error("name with forbidden character was accepted")
		}
	})
}

// FuzzParseSubscriberEmail checks that accepted addresses keep their input
// and always contain a non-empty local part and domain.
func FuzzParseSubscriberEmail(f *testing.F) {
	f.Add("")
	f.Add("user@example.com")
	f.Add("@domain.com")
	f.Add("maurice@.com")
	f.Add("user@[::1]")
	f.Add("user@[IPv6:::1]")
	f.Add("user@bücher.example")

	f.Fuzz(func(t *testing.T, input string) {
		email, err := ParseSubscriberEmail(input)
		if err != nil {
			return
		}
		if email.String() != input {
			t.Errorf("stored %q, want %q", email.String(), input)
		}
		at := strings.LastIndexByte(input, '@')
		if at <= 0 || at == len(input)-1 {
			t.Errorf("accepted %q without local part or domain", input)
		}
	})
}
