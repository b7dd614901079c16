// Package price turns currency-formatted listing text into whole-unit integers.
package price

import (
	"strconv"
	"strings"
)

// Parse keeps only the ASCII digits of text and reads them as one integer.
// "KSh 1,299" and "1.299" both give 1299. It returns 0 when no digits
// remain or when they do not fit in an int64; callers treat 0 as "no price".
func Parse(text string) int64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
