// Package sanitizer normalizes inbound booking fields before validation.
// All functions are idempotent and never return errors; malformed input
// comes out in a canonical form the validator can then reject.
package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reKeepAlnum = regexp.MustCompile(`[^0-9A-Za-z-]+`)

	codePipeline = Pipeline{
		TrimAndNormalize,
		strings.ToUpper,
	}

	refPipeline = Pipeline{
		TrimAndNormalize,
		stripNonAlnum,
		strings.ToUpper,
	}
)

// TrimAndNormalize trims the string and collapses internal whitespace runs
// to a single space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeStationCode canonicalizes an origin or destination code.
// "del " and "Del" both come out as "DEL".
func NormalizeStationCode(code string) string {
	return codePipeline.Apply(code)
}

// NormalizeBookingRef canonicalizes a booking reference: whitespace and
// stray punctuation are dropped and hex digits are uppercased, so
// " rg-0a1b2c3d " matches the stored "RG-0A1B2C3D".
func NormalizeBookingRef(ref string) string {
	return refPipeline.Apply(ref)
}

func stripNonAlnum(s string) string {
	return reKeepAlnum.ReplaceAllString(s, "")
}
