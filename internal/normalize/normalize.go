// Package normalize cleans raw extracted strings before they enter
// comparison logic: null-like token detection, name canonicalization
// and date canonicalization to DD-MM-YYYY.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// nullLikeTokens are values LLMs and OCR commonly emit in place of a
// genuinely absent field. They must never reach storage as literals.
var nullLikeTokens = map[string]struct{}{
	"null": {},
	"none": {},
	"n/a":  {},
	"na":   {},
	"-":    {},
	"":     {},
}

// IsNullLike reports whether s is one of the known null-like tokens
// after trimming, case-insensitively.
func IsNullLike(s string) bool {
	_, ok := nullLikeTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Name lowercases, strips periods and commas, collapses internal
// whitespace runs and trims. Used only for comparison; the stored
// original-case name is never overwritten with this form.
func Name(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", " ", ",", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Date normalizes a date string to the canonical DD-MM-YYYY form.
// Accepted separators are "-", "/", "." and space. Day-first wins on
// ambiguity; a leading 4-digit part is treated as YYYY-MM-DD and
// flipped. Two-digit years pivot at 50 (87 -> 1987, 12 -> 2012).
//
// Fails closed: null-like input or anything that does not resolve to a
// real calendar date returns ("", false), never a best-guess date.
func Date(s string) (string, bool) {
	if IsNullLike(s) {
		return "", false
	}
	s = strings.TrimSpace(s)
	for _, sep := range []string{"/", ".", " "} {
		s = strings.ReplaceAll(s, sep, "-")
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return "", false
	}

	var day, month, year string
	if len(parts[0]) == 4 && isDigits(parts[0]) {
		year, month, day = parts[0], parts[1], parts[2]
	} else {
		day, month, year = parts[0], parts[1], parts[2]
	}

	if !isDigits(day) || !isDigits(month) || !isDigits(year) {
		return "", false
	}
	if len(year) == 2 {
		y, _ := strconv.Atoi(year)
		if y > 50 {
			year = "19" + year
		} else {
			year = "20" + year
		}
	}
	if len(year) != 4 {
		return "", false
	}

	d, _ := strconv.Atoi(day)
	m, _ := strconv.Atoi(month)
	y, _ := strconv.Atoi(year)
	if !validCalendarDate(y, m, d) {
		return "", false
	}
	return fmt.Sprintf("%02d-%02d-%04d", d, m, y), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validCalendarDate(y, m, d int) bool {
	if y < 1 || m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}
