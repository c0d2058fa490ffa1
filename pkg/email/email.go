// Package email holds helpers for email addresses as they arrive from source systems.
package email

import (
	"strings"
	"unicode"
)

// Normalize trims and lower-cases an address. Target lookups and inserts always use
// the normalized form.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsValidShape reports whether addr looks like local@domain.tld. It does not
// attempt full RFC 5322 parsing.
func IsValidShape(addr string) bool {
	if strings.ContainsFunc(addr, unicode.IsSpace) {
		return false
	}
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// LocalPart returns the part of addr before '@', or addr when there is none.
func LocalPart(addr string) string {
	if at := strings.IndexByte(addr, '@'); at > 0 {
		return addr[:at]
	}
	return addr
}

// DeriveNameFromEmail guesses a first and last name from the local part, splitting on
// '.', '_', '-' and '+'. Missing parts become "User".
func DeriveNameFromEmail(email string) (string, string) {
	parts := strings.FieldsFunc(LocalPart(email), func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
