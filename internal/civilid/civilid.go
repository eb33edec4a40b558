// Package civilid implements the Civil ID number rules: digit repair, format,
// the community checksum and the birth date encoded in the number.
//
// The number has twelve digits laid out as C YYMMDD SSSS K where C is the
// century digit (2 for 1900s, 3 for 2000s), YYMMDD the holder's birth date,
// SSSS a serial and K the check digit. The checksum weights are a
// community-sourced approximation and not an official specification.
package civilid

import (
	"strings"
	"time"
)

// Length is the number of digits in a Civil ID.
const Length = 12

var weights = [Length - 1]int{2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}

// NormalizeDigits maps Arabic-Indic and extended Arabic-Indic digits to ASCII.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}

// RecoverDigits repairs characters OCR commonly reads in place of digits.
// Callers apply it to tokens that are already digit-dominant.
func RecoverDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'O', 'o':
			return '0'
		case 'I', 'l', '|':
			return '1'
		case 'S':
			return '5'
		}
		return r
	}, s)
}

// ValidFormat reports whether id is exactly twelve ASCII digits.
func ValidFormat(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// Century returns the birth century encoded in the first digit.
func Century(id string) (int, bool) {
	if len(id) == 0 {
		return 0, false
	}
	switch id[0] {
	case '2':
		return 1900, true
	case '3':
		return 2000, true
	}
	return 0, false
}

// ValidCentury reports whether id starts with a known century digit.
func ValidCentury(id string) bool {
	_, ok := Century(id)
	return ok
}

// CheckDigit computes the check digit for the first eleven digits. It returns
// false when the input is malformed or the formula yields 10 or 11, which no
// valid number can carry.
func CheckDigit(first11 string) (int, bool) {
	if len(first11) != Length-1 {
		return 0, false
	}
	sum := 0
	for i := 0; i < len(first11); i++ {
		c := first11[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		sum += int(c-'0') * weights[i]
	}
	check := 11 - sum%11
	if check > 9 {
		return 0, false
	}
	return check, true
}

// ValidChecksum reports whether id carries a correct check digit. It is
// defined for every string: malformed input is simply invalid.
func ValidChecksum(id string) bool {
	if !ValidFormat(id) {
		return false
	}
	check, ok := CheckDigit(id[:Length-1])
	return ok && check == int(id[Length-1]-'0')
}

// BirthDate decodes the holder's birth date. It fails for malformed numbers,
// unknown centuries, impossible calendar dates and dates after now.
func BirthDate(id string, now time.Time) (time.Time, bool) {
	if !ValidFormat(id) {
		return time.Time{}, false
	}
	century, ok := Century(id)
	if !ok {
		return time.Time{}, false
	}
	yy := atoi2(id[1:3])
	mm := atoi2(id[3:5])
	dd := atoi2(id[5:7])
	if mm < 1 || mm > 12 || dd < 1 || dd > 31 {
		return time.Time{}, false
	}
	dob := time.Date(century+yy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow such as 31 April into May.
	if dob.Month() != time.Month(mm) || dob.Day() != dd {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if dob.After(today) {
		return time.Time{}, false
	}
	return dob, true
}

func atoi2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
