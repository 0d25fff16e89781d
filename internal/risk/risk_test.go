package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		valid  bool
		reason string
	}{
		{name: "country code with space", raw: "+91 9876543210", valid: true},
		{name: "bare mobile", raw: "9876543210", valid: true},
		{name: "trunk prefix", raw: "09876543210", valid: true},
		{name: "dashes and spaces", raw: "98765-43 210", valid: true},
		{name: "starts with 6", raw: "6000000000", valid: true},
		{name: "empty", raw: "", reason: ReasonMissingPhone},
		{name: "too short", raw: "99999999", reason: ReasonPhoneLength},
		{name: "too long after prefix strip", raw: "9198765432101", reason: ReasonPhoneLength},
		{name: "letters only", raw: "phone", reason: ReasonPhoneLength},
		{name: "starts with 1", raw: "1234567890", reason: ReasonPhoneInvalidFormat},
		{name: "starts with 5", raw: "5876543210", reason: ReasonPhoneInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePhone(tt.raw)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestCleanPhone(t *testing.T) {
	assert.Equal(t, "9876543210", CleanPhone("+91-98765 43210"))
	assert.Equal(t, "9876543210", CleanPhone("09876543210"))
	// 91 is only removed once
	assert.Equal(t, "919876543", CleanPhone("91919876543"))
	assert.Equal(t, "12345", CleanPhone("12345"))
}

func orderWithAddress(line1, line2 string) *types.CanonicalOrder {
	return &types.CanonicalOrder{
		ID:   "gid://shopify/Order/1",
		Name: "#1001",
		ShippingAddress: &types.ShippingAddress{
			Name:     "Ansh Singh",
			Address1: line1,
			Address2: line2,
			Zip:      "110001",
		},
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name   string
		order  *types.CanonicalOrder
		valid  bool
		reason string
	}{
		{name: "nil order", order: nil, reason: ReasonMissingAddress},
		{name: "no shipping address", order: &types.CanonicalOrder{}, reason: ReasonMissingAddress},
		{name: "too short", order: orderWithAddress("House 4", ""), reason: "Address too short (7 chars)"},
		{name: "second line counts", order: orderWithAddress("House 4", "Comlia Complex"), valid: true},
		{name: "descriptive", order: orderWithAddress("House 4, Comlia Complex", ""), valid: true},
		{name: "house number only", order: orderWithAddress("House   42", "   "), reason: `Suspicious Address Pattern: "House   42"`},
		{name: "digits only", order: orderWithAddress("1234567890", ""), reason: `Suspicious Address Pattern: "1234567890"`},
		{name: "flat number", order: orderWithAddress("FLAT 10234567", ""), reason: `Suspicious Address Pattern: "FLAT 10234567"`},
		{name: "unknown address", order: orderWithAddress("Unknown Address", ""), reason: `Suspicious Address Pattern: "Unknown Address"`},
		{name: "no number", order: orderWithAddress("no 12345678", ""), reason: `Suspicious Address Pattern: "no 12345678"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateAddress(tt.order)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestValidateAddress_LengthBeforePattern(t *testing.T) {
	// "Flat 12" matches the flat pattern but is rejected for length first.
	got := ValidateAddress(orderWithAddress("Flat 12", ""))
	assert.False(t, got.Valid)
	assert.Equal(t, "Address too short (7 chars)", got.Reason)
}

func dupOrder(id, name, customer, line1, zip string) *types.CanonicalOrder {
	return &types.CanonicalOrder{
		ID:   id,
		Name: name,
		ShippingAddress: &types.ShippingAddress{
			Name:     customer,
			Address1: line1,
			Zip:      zip,
		},
	}
}

func TestFindDuplicates(t *testing.T) {
	t.Run("same customer twice is safe", func(t *testing.T) {
		orders := []*types.CanonicalOrder{
			dupOrder("A", "#1001", "Ansh Singh", "12 MG Road", "110001"),
			dupOrder("B", "#1002", " ansh singh ", "12 mg road", "110001"),
		}
		assert.Empty(t, FindDuplicates(orders))
	})

	t.Run("different names share an address", func(t *testing.T) {
		orders := []*types.CanonicalOrder{
			dupOrder("A", "#1001", "John Doe", "12 MG Road", "110001"),
			dupOrder("B", "#1002", "Jane Smith", "12, M.G. Road", "110001"),
			dupOrder("C", "#1003", "Solo Buyer", "7 Park Street", "700016"),
		}
		flagged := FindDuplicates(orders)
		require.Len(t, flagged, 2)
		want := "Duplicate Address with Different Names (Matches: #1001, #1002)"
		assert.Equal(t, want, flagged["A"])
		assert.Equal(t, want, flagged["B"])
		assert.NotContains(t, flagged, "C")
	})

	t.Run("different zip is a different address", func(t *testing.T) {
		orders := []*types.CanonicalOrder{
			dupOrder("A", "#1001", "John Doe", "12 MG Road", "110001"),
			dupOrder("B", "#1002", "Jane Smith", "12 MG Road", "560001"),
		}
		assert.Empty(t, FindDuplicates(orders))
	})

	t.Run("spelling variants do not collapse", func(t *testing.T) {
		orders := []*types.CanonicalOrder{
			dupOrder("A", "#1001", "John Doe", "12 MG St.", "110001"),
			dupOrder("B", "#1002", "Jane Smith", "12 MG Street", "110001"),
		}
		assert.Empty(t, FindDuplicates(orders))
	})

	t.Run("orders without address are skipped", func(t *testing.T) {
		orders := []*types.CanonicalOrder{
			{ID: "A", Name: "#1001"},
			nil,
		}
		assert.Empty(t, FindDuplicates(orders))
	})
}

func TestAddressKey(t *testing.T) {
	assert.Equal(t, "12mgroad110001", AddressKey(&types.ShippingAddress{Address1: "12, M.G. Road", Zip: "110 001"}))
}
