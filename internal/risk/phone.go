// Package risk evaluates storefront orders for shipping risk: malformed phones, degenerate
// addresses, and the same address being shared by different customers.
//
// All checks are pure functions of their input.
package risk

import (
	"regexp"
	"strings"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// Phone verdict reasons.
const (
	ReasonMissingPhone       = "Missing Phone"
	ReasonPhoneLength        = "Phone length invalid (must be 10 digits)"
	ReasonPhoneInvalidFormat = "Invalid Indian Mobile Format"
)

// validMobile matches a bare 10-digit Indian mobile number.
var validMobile = regexp.MustCompile(`^[6-9]\d{9}$`)

// ValidatePhone checks that raw is a reachable Indian mobile number.
// Formatting characters are ignored and a leading country code (91) or trunk prefix (0)
// is removed when the number is longer than 10 digits.
func ValidatePhone(raw string) types.RiskVerdict {
	if raw == "" {
		return types.Fail(ReasonMissingPhone)
	}

	cleaned := CleanPhone(raw)
	if len(cleaned) != 10 {
		return types.Fail(ReasonPhoneLength)
	}
	if !validMobile.MatchString(cleaned) {
		return types.Fail(ReasonPhoneInvalidFormat)
	}
	return types.Pass()
}

// CleanPhone strips non-digits and, for numbers longer than 10 digits, one leading
// "91" or "0".
func CleanPhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if len(cleaned) > 10 {
		switch {
		case strings.HasPrefix(cleaned, "91"):
			cleaned = cleaned[2:]
		case strings.HasPrefix(cleaned, "0"):
			cleaned = cleaned[1:]
		}
	}
	return cleaned
}
