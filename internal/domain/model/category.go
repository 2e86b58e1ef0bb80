package model

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Gender derived from the leading character of a category code.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
)

// Known reports whether the gender is male or female.
func (g Gender) Known() bool {
	return g == GenderMale || g == GenderFemale
}

// Category is a parsed category code such as "M40" or "FO".
type Category struct {
	Gender  Gender
	AgeBand string
}

// ParseCategory splits a category code into gender and age band.
// Codes that do not start with M or F keep the whole code as the age band.
func ParseCategory(code string) Category {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Category{}
	}
	r, size := utf8.DecodeRuneInString(code)
	switch r {
	case 'M':
		return Category{Gender: GenderMale, AgeBand: code[size:]}
	case 'F':
		return Category{Gender: GenderFemale, AgeBand: code[size:]}
	default:
		return Category{AgeBand: code}
	}
}

// ParseDuration converts "H:MM:SS" or "MM:SS" to seconds.
// It reports false for blank or malformed values.
func ParseDuration(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, false
		}
		if i > 0 && n >= 60 {
			return 0, false
		}
		total = total*60 + n
	}
	if total == 0 {
		return 0, false
	}
	return total, true
}
