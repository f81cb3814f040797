// Package phone normalizes and validates Ethiopian mobile numbers.
package phone

import "strings"

// CountryCode is the Ethiopian calling code without the plus sign
const CountryCode = "251"

const prefix = "+" + CountryCode

// carrierPrefixes holds the mobile prefixes accepted by Validate, leading zero stripped.
// 9x are Ethio Telecom ranges, 7x are Safaricom Ethiopia ranges.
var carrierPrefixes = map[string]struct{}{
	"91": {}, "92": {}, "93": {}, "94": {}, "95": {}, "96": {}, "97": {}, "98": {}, "99": {},
	"70": {}, "71": {}, "72": {}, "77": {}, "79": {},
}

// Normalize converts local phone input to the +251XXXXXXXXX form.
// Input that matches none of the rules is returned unchanged; callers must Validate.
func Normalize(input string) string {
	digits := stripNonDigits(input)

	switch {
	case digits == "":
		return input
	case strings.HasPrefix(digits, CountryCode):
		return "+" + digits
	case strings.HasPrefix(digits, "0"):
		return prefix + digits[1:]
	case len(digits) == 9:
		return prefix + digits
	case len(digits) == 10 && strings.HasPrefix(digits, "9"):
		return prefix + digits
	}
	return input
}

// Validate reports whether input normalizes to a +251 number on a known carrier prefix.
func Validate(input string) bool {
	n := Normalize(input)
	if !strings.HasPrefix(n, prefix) {
		return false
	}
	local := n[len(prefix):]
	if len(local) != 9 || stripNonDigits(local) != local {
		return false
	}
	_, ok := carrierPrefixes[local[:2]]
	return ok
}

// Format renders a number as "+251 XX XXX XXXX" for display.
// The input is returned unchanged when it does not normalize to 13 characters.
func Format(input string) string {
	n := Normalize(input)
	if len(n) != 13 || !strings.HasPrefix(n, prefix) {
		return input
	}
	return prefix + " " + n[4:6] + " " + n[6:9] + " " + n[9:13]
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
