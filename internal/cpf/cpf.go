// Package cpf validates and formats Brazilian CPF numbers.
package cpf

import "strings"

// Clean strips everything that is not a digit.
func Clean(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValid reports whether s is a valid CPF. Non-digits are ignored; the
// cleaned value must be exactly 11 digits, not an all-repeated sequence, and
// both check digits must match the weighted modulo-11 algorithm.
func IsValid(s string) bool {
	c := Clean(s)
	if len(c) != 11 {
		return false
	}
	repeated := true
	for i := 1; i < 11; i++ {
		if c[i] != c[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return false
	}
	if checkDigit(c, 9) != int(c[9]-'0') {
		return false
	}
	return checkDigit(c, 10) == int(c[10]-'0')
}

// checkDigit computes the verification digit over the first n digits of c,
// with weights n+1 down to 2.
func checkDigit(c string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(c[i]-'0') * (n + 1 - i)
	}
	d := 11 - sum%11
	if d >= 10 {
		return 0
	}
	return d
}

// Format renders a cleaned CPF as ###.###.###-##. Inputs that are not 11
// digits are returned cleaned but unformatted.
func Format(s string) string {
	c := Clean(s)
	if len(c) != 11 {
		return c
	}
	return c[:3] + "." + c[3:6] + "." + c[6:9] + "-" + c[9:]
}

// Mask renders a CPF for display with the middle digits hidden.
func Mask(s string) string {
	c := Clean(s)
	if len(c) != 11 {
		return c
	}
	return c[:3] + ".***.***-" + c[9:]
}
