// Package isbn validates and generates book identifier codes.
package isbn

import (
	"math/rand"
	"strings"
)

// clean strips everything but digits, optionally keeping X/x (the
// ISBN-10 check character).
func clean(code string, keepX bool) string {
	var b strings.Builder
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case keepX && (r == 'X' || r == 'x'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValid10 reports whether code is a valid ISBN-10.
// Weighted sum: digit[i] * (10-i) for i=0..8 plus the check value
// (the digit, or 10 when the tenth character is X); valid iff sum % 11 == 0.
func IsValid10(code string) bool {
	s := clean(code, true)
	if len(s) != 10 {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * (10 - i)
	}

	check := s[9]
	switch {
	case check == 'X' || check == 'x':
		sum += 10
	case check >= '0' && check <= '9':
		sum += int(check - '0')
	default:
		return false
	}

	return sum%11 == 0
}

// IsValid13 reports whether code is a valid ISBN-13.
// Weighted sum: digit[i] * 1 for even i, * 3 for odd i; valid iff sum % 10 == 0.
func IsValid13(code string) bool {
	s := clean(code, false)
	if len(s) != 13 {
		return false
	}

	sum := 0
	for i := 0; i < 13; i++ {
		d := int(s[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}

	return sum%10 == 0
}

// IsValid dispatches to the 10- or 13-digit check based on the cleaned
// length. Any other length is invalid.
func IsValid(code string) bool {
	switch len(clean(code, true)) {
	case 13:
		return IsValid13(code)
	case 10:
		return IsValid10(code)
	default:
		return false
	}
}

// Generate13 synthesizes a checksum-valid ISBN-13: the "978" bookland
// prefix, 9 random digits and a computed check digit, hyphenated into
// the conventional 3-1-2-6-1 groups. Used as a catalog fallback when a
// book is registered without a usable identifier; uniqueness is left to
// the catalog's unique index.
func Generate13() string {
	digits := make([]int, 13)
	digits[0], digits[1], digits[2] = 9, 7, 8
	for i := 3; i < 12; i++ {
		digits[i] = rand.Intn(10)
	}

	sum := 0
	for i := 0; i < 12; i++ {
		if i%2 == 0 {
			sum += digits[i]
		} else {
			sum += digits[i] * 3
		}
	}
	digits[12] = (10 - sum%10) % 10

	var b strings.Builder
	groups := []int{3, 1, 2, 6, 1}
	pos := 0
	for g, n := range groups {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < n; i++ {
			b.WriteByte(byte('0' + digits[pos]))
			pos++
		}
	}
	return b.String()
}
