package validation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrQueryEmpty is returned when the location query is empty or whitespace-only after trim.
var ErrQueryEmpty = errors.New("location query is required")

// ErrQueryTooLong is returned when the location query exceeds the maximum length.
var ErrQueryTooLong = errors.New("location query too long")

// ErrQueryControlChars is returned when the query contains control characters.
var ErrQueryControlChars = errors.New("location query contains control characters")

// ValidateQuery trims the input and enforces maxLen (in runes, 0 disables the bound).
// The query is otherwise opaque: punctuation such as "St. John's" passes through untouched.
func ValidateQuery(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrQueryEmpty
	}
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		return "", ErrQueryTooLong
	}
	for _, c := range s {
		if unicode.IsControl(c) {
			return "", ErrQueryControlChars
		}
	}
	return s, nil
}
