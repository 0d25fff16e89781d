package carrier

import "strings"

// FailureKind buckets an assignment failure by its message. The carrier does not return stable
// error codes, so classification is content based.
type FailureKind string

// Failure kinds.
const (
	FailureLowWallet  FailureKind = "LOW_WALLET"
	FailureDimensions FailureKind = "DIMENSIONS"
	FailureGeneric    FailureKind = "GENERIC"
)

var lowWalletKeywords = []string{"wallet", "balance", "insufficient"}

var dimensionKeywords = []string{"dimension", "weight", "length", "breadth", "height"}

// ClassifyFailure maps a carrier failure message to a FailureKind.
// Wallet keywords take precedence over dimension keywords.
func ClassifyFailure(message string) FailureKind {
	lower := strings.ToLower(message)
	if containsAny(lower, lowWalletKeywords) {
		return FailureLowWallet
	}
	if containsAny(lower, dimensionKeywords) {
		return FailureDimensions
	}
	return FailureGeneric
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
