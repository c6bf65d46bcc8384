package domain

import (
	"net/netip"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// RFC 5321 section 4.5.3.1 size limits, counted in characters.
const (
	maxLocalPartLength = 64
	maxDomainLength    = 255
)

var (
	localPartPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+$")
	domainPattern    = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	literalPattern   = regexp.MustCompile(`^\[([0-9A-Fa-f:.]+)\]$`)
)

// isEmailAddress reports whether s is a bare addr-spec: local "@" domain.
// Display names, comments and quoted local parts are not accepted.
func isEmailAddress(s string) bool {
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return false
	}
	local, domain := s[:at], s[at+1:]

	if utf8.RuneCountInString(local) > maxLocalPartLength || utf8.RuneCountInString(domain) > maxDomainLength {
		return false
	}
	if !localPartPattern.MatchString(local) {
		return false
	}
	return isEmailDomain(domain)
}

func isEmailDomain(domain string) bool {
	if domainPattern.MatchString(domain) {
		return true
	}
	// Address literals are bare IPv4 or IPv6; the RFC 5321 "IPv6:" tag is
	// not accepted.
	if m := literalPattern.FindStringSubmatch(domain); m != nil {
		_, err := netip.ParseAddr(m[1])
		return err == nil
	}

	// Internationalized domains are checked in their ASCII form.
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return false
	}
	return domainPattern.MatchString(ascii)
}
