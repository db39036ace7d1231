package schema

import (
	"strconv"
	"strings"
)

// Sniff guesses the data type of one trimmed value by shape. The guess is
// cheap on purpose: shape checks first, a real parse only to confirm.
func Sniff(value string) DataType {
	if value == "true" || value == "false" {
		return TypeBoolean
	}
	if looksLikeTime(value) && parseTime(value) {
		return TypeTime
	}
	if looksLikeDate(value) {
		if len(value) >= 19 && value[13] == ':' {
			if parseDateTime(value) {
				return TypeDateTime
			}
		} else if parseDate(value) {
			return TypeDate
		}
	}
	return sniffNumeric(value)
}

// Check re-validates a value against a previously sniffed type. A value that
// no longer fits downgrades the field to string; the only upgrade allowed is
// integer to decimal. Types never move in any other direction.
func Check(value string, current DataType) DataType {
	switch current {
	case TypeUnknown:
		return Sniff(value)
	case TypeString:
		return TypeString
	case TypeBoolean:
		if value == "true" || value == "false" {
			return TypeBoolean
		}
	case TypeTime:
		if looksLikeTime(value) && parseTime(value) {
			return TypeTime
		}
	case TypeDate:
		if looksLikeDate(value) && len(value) < 19 && parseDate(value) {
			return TypeDate
		}
	case TypeDateTime:
		if looksLikeDate(value) && len(value) >= 19 && value[13] == ':' && parseDateTime(value) {
			return TypeDateTime
		}
	case TypeInteger:
		switch sniffNumeric(value) {
		case TypeInteger:
			return TypeInteger
		case TypeDecimal:
			return TypeDecimal
		}
	case TypeDecimal:
		switch sniffNumeric(value) {
		case TypeInteger, TypeDecimal:
			return TypeDecimal
		}
	}
	return TypeString
}

// looksLikeTime matches the HH:MM:SS[.sss] shape.
func looksLikeTime(s string) bool {
	return len(s) >= 8 && s[2] == ':' && s[5] == ':'
}

// looksLikeDate matches the YYYY-MM-DD prefix shared by date and datetime.
func looksLikeDate(s string) bool {
	return len(s) >= 10 && s[4] == '-' && s[7] == '-'
}

func parseTime(s string) bool {
	base, frac, hasFrac := strings.Cut(s, ".")
	if len(base) != 8 {
		return false
	}
	if hasFrac && !allDigits(frac) {
		return false
	}
	h, err1 := strconv.Atoi(base[0:2])
	m, err2 := strconv.Atoi(base[3:5])
	sec, err3 := strconv.Atoi(base[6:8])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	return h >= 0 && h < 24 && m >= 0 && m < 60 && sec >= 0 && sec < 60
}

func parseDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[5:7])
	d, err3 := strconv.Atoi(s[8:10])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	return y > 0 && m >= 1 && m <= 12 && d >= 1 && d <= 31
}

func parseDateTime(s string) bool {
	if len(s) < 19 {
		return false
	}
	sep := s[10]
	if sep != 'T' && sep != ' ' {
		return false
	}
	return parseDate(s[:10]) && parseTime(s[11:])
}

// sniffNumeric classifies a value as integer, decimal or string by counting
// digits, signs and dots.
func sniffNumeric(s string) DataType {
	if s == "" {
		return TypeString
	}
	digits, dots := 0, 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		case (r == '-' || r == '+') && i == 0:
			// leading sign
		default:
			return TypeString
		}
	}
	if digits == 0 || dots > 1 {
		return TypeString
	}
	if dots == 1 {
		return TypeDecimal
	}
	return TypeInteger
}

func allDigits(s string) bool {
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
