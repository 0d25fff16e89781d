package risk

import (
	"fmt"
	"strings"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

type addressMember struct {
	id        string
	name      string
	displayID string
}

// FindDuplicates flags orders that ship to the same address under different names.
// It returns order ID -> reason for every member of such a group.
//
// Orders sharing an address and a name are repeat customers and are not flagged.
// The grouping key is lowercase(address1 + zip) reduced to [a-z0-9]; spelling variants
// such as "St." and "Street" do not collapse.
func FindDuplicates(orders []*types.CanonicalOrder) map[string]string {
	flagged := make(map[string]string)
	groups := make(map[string][]addressMember)
	var keys []string

	for _, order := range orders {
		if order == nil || order.ShippingAddress == nil {
			continue
		}
		key := AddressKey(order.ShippingAddress)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], addressMember{
			id:        order.ID,
			name:      strings.ToLower(strings.TrimSpace(order.ShippingAddress.Name)),
			displayID: order.Name,
		})
	}

	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		names := make(map[string]struct{}, len(group))
		for _, m := range group {
			names[m.name] = struct{}{}
		}
		if len(names) < 2 {
			continue
		}

		displayIDs := make([]string, len(group))
		for i, m := range group {
			displayIDs[i] = m.displayID
		}
		reason := fmt.Sprintf("Duplicate Address with Different Names (Matches: %s)", strings.Join(displayIDs, ", "))
		for _, m := range group {
			flagged[m.id] = reason
		}
	}

	return flagged
}

// AddressKey normalizes an address for duplicate grouping.
func AddressKey(addr *types.ShippingAddress) string {
	raw := strings.ToLower(addr.Address1 + addr.Zip)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
