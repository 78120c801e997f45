package models

import (
	"regexp"
	"strings"
)

// phMobileRegex matches Philippine mobile numbers: a +63 or 0 prefix
// followed by a 10-digit subscriber number starting with 9.
var phMobileRegex = regexp.MustCompile(`^(?:\+63|0)(9\d{9})$`)

// NormalizePHMobile validates a Philippine mobile number and returns it in
// +63 international form. Whitespace and dashes are tolerated in the input.
func NormalizePHMobile(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	m := phMobileRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return "", ErrInvalidMobile
	}
	return "+63" + m[1], nil
}

// ValidateFullName checks that a captured name has at least two
// space-separated words and at least five characters total.
func ValidateFullName(raw string) error {
	name := strings.TrimSpace(raw)
	if len(name) < 5 {
		return ErrInvalidName
	}
	if len(strings.Fields(name)) < 2 {
		return ErrInvalidName
	}
	return nil
}
