package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// placeholders are cell texts sites use for "no value".
var placeholders = map[string]struct{}{
	"":    {},
	"-":   {},
	"--":  {},
	"—":   {},
	"N/A": {},
	"n/a": {},
}

var (
	decimalRe       = regexp.MustCompile(`^[+\-]?\d*\.?\d+(?:[eE][+\-]?\d+)?$`)
	leadingNumberRe = regexp.MustCompile(`^[+\-]?[\d,]*\.?\d+`)
	rangeNumberRe   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// magnitudes maps suffix letters to decimal exponents.
var magnitudes = map[byte]string{
	'K': "e3",
	'M': "e6",
	'B': "e9",
	'T': "e12",
}

// IsPlaceholder reports whether s means "no value".
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.TrimSpace(s)]
	return ok
}

// ParseNumber strips thousands separators and a leading "+" and parses
// the rest as a float. Only plain decimal text is a number: "NaN", "Inf"
// and hex floats are not. The second result is false when s holds no
// number.
func ParseNumber(s string) (float64, bool) {
	s = normalizeSign(strings.TrimSpace(s))
	if IsPlaceholder(s) {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	if !decimalRe.MatchString(s) {
		return 0, false
	}
	s = strings.TrimPrefix(s, "+")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseMagnitude parses values such as "12.3M", "4.5B" and "800K".
// Unsuffixed input falls back to ParseNumber.
func ParseMagnitude(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if IsPlaceholder(s) {
		return 0, false
	}
	last := s[len(s)-1]
	if last >= 'a' && last <= 'z' {
		last -= 'a' - 'A'
	}
	exp, ok := magnitudes[last]
	if !ok {
		return ParseNumber(s)
	}
	mantissa := strings.TrimSpace(s[:len(s)-1])
	if mantissa == "" {
		return 0, false
	}
	// Scaling through the exponent keeps "12.3M" exact.
	return ParseNumber(mantissa + exp)
}

// ParsePercent parses "+12.5%" style values into 12.5.
func ParsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "()")
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return ParseNumber(s)
}

// ParseLeadingNumber parses the number at the start of s, ignoring
// anything after it ("12.34 +0.56" yields 12.34).
func ParseLeadingNumber(s string) (float64, bool) {
	s = normalizeSign(strings.TrimSpace(s))
	if IsPlaceholder(s) {
		return 0, false
	}
	m := leadingNumberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	return ParseNumber(m)
}

// ParseRange returns the first and last number found in s, as in a
// "52 week range" cell. With a single number only low is present.
func ParseRange(s string) (low float64, lowOK bool, high float64, highOK bool) {
	nums := rangeNumberRe.FindAllString(s, -1)
	if len(nums) == 0 {
		return 0, false, 0, false
	}
	low, lowOK = ParseNumber(nums[0])
	if len(nums) > 1 {
		high, highOK = ParseNumber(nums[len(nums)-1])
	}
	return low, lowOK, high, highOK
}

// normalizeSign replaces the unicode minus some sites render.
func normalizeSign(s string) string {
	return strings.ReplaceAll(s, "−", "-")
}
