package risk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// MinAddressLength is the shortest combined address line accepted.
const MinAddressLength = 10

// ReasonMissingAddress is reported for orders without a shipping address.
const ReasonMissingAddress = "Missing Shipping Address"

// blockedAddressPatterns match addresses that cannot be delivered to.
// Every pattern is anchored so that "House 4, Comlia Complex" is not blocked.
var blockedAddressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^house\s*\d+$`),
	regexp.MustCompile(`(?i)^flat\s*\d+$`),
	regexp.MustCompile(`(?i)^room\s*\d+$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`(?i)^no\s+\d+$`),
	regexp.MustCompile(`(?i)^same$`),
	regexp.MustCompile(`(?i)^test$`),
	regexp.MustCompile(`(?i)^unknown(\s*address)?$`),
	regexp.MustCompile(`(?i)^na$`),
	regexp.MustCompile(`(?i)^n/a$`),
}

// ValidateAddress checks the combined address lines of an order.
// The length check runs before the blocklist; the first failure is returned with the
// offending text so an operator can triage it.
func ValidateAddress(order *types.CanonicalOrder) types.RiskVerdict {
	if order == nil || order.ShippingAddress == nil {
		return types.Fail(ReasonMissingAddress)
	}

	full := FullAddress(order.ShippingAddress)
	if n := utf8.RuneCountInString(full); n < MinAddressLength {
		return types.Fail(fmt.Sprintf("Address too short (%d chars)", n))
	}

	for _, pattern := range blockedAddressPatterns {
		if pattern.MatchString(full) {
			return types.Fail(fmt.Sprintf("Suspicious Address Pattern: %q", full))
		}
	}
	return types.Pass()
}

// FullAddress joins both address lines into the string the checks operate on.
func FullAddress(addr *types.ShippingAddress) string {
	line1 := strings.TrimSpace(addr.Address1)
	line2 := strings.TrimSpace(addr.Address2)
	return strings.TrimSpace(line1 + " " + line2)
}
