package email

import (
	"strings"
	"unicode"
)

// DisplayName returns name when it is not blank, otherwise a greeting name
// derived from the local part of the address ("ann.lee@x" -> "Ann Lee").
func DisplayName(name, address string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	first, last := DeriveNameFromEmail(address)
	if last == "" {
		return first
	}
	return first + " " + last
}

// DeriveNameFromEmail splits the local part of an address on common
// separators and capitalizes the first and last pieces. Missing pieces come
// back as "User" for the first name and "" for the last name.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", ""
	}

	first := capitalize(parts[0])
	last := ""
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
