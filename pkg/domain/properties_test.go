package domain

import (
	"testing"

	"pgregory.net/rapid"
)

// safeEmail draws addresses shaped like "<user>@<host>.<tld>", the same shape
// a signup form sees from real users.
func safeEmail() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		user := rapid.StringMatching(`[a-z][a-z0-9_.+-]{0,15}`).Draw(t, "user")
		host := rapid.StringMatching(`[a-z0-9]([a-z0-9-]{0,10}[a-z0-9])?`).Draw(t, "host")
		sub := rapid.SliceOfN(rapid.StringMatching(`[a-z][a-z0-9]{0,7}`), 0, 2).Draw(t, "subdomains")
		tld := rapid.SampledFrom([]string{"com", "net", "org", "io", "co.uk"}).Draw(t, "tld")

		domain := host
		for _, s := range sub {
			domain = s + "." + domain
		}
		return user + "@" + domain + "." + tld
	})
}

func TestProperty_ValidEmailsAreAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := safeEmail().Draw(t, "email")
		email, err := ParseSubscriberEmail(input)
		if err != nil {
			t.Fatalf("expected %q to be accepted: %v", input, err)
		}
		if email.String() != input {
			t.Fatalf("stored %q, want %q", email.String(), input)
		}
	})
}

func TestProperty_EmailParsingIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.OneOf(safeEmail(), rapid.String()).Draw(t, "input")

		first, err1 := ParseSubscriberEmail(input)
		second, err2 := ParseSubscriberEmail(input)
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("outcome changed between calls for %q", input)
		}
		if first != second {
			t.Fatalf("stored content changed between calls for %q", input)
		}
		if err1 == nil && first.String() != input {
			t.Fatalf("accepted value %q differs from input %q", first.String(), input)
		}
	})
}

func TestProperty_NameParsingIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")

		first, err1 := ParseSubscriberName(input)
		second, err2 := ParseSubscriberName(input)
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("outcome changed between calls for %q", input)
		}
		if err1 != nil {
			if err1.Error() != err2.Error() {
				t.Fatalf("error changed between calls: %q vs %q", err1, err2)
			}
			return
		}
		if first.String() != input || second.String() != input {
			t.Fatalf("accepted value differs from input %q", input)
		}
	})
}
