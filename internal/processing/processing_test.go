package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

func cost(v float64) *float64 {
	return &v
}

func TestProcessOrders_ExpandsQuantity(t *testing.T) {
	orders := []*types.CanonicalOrder{
		{
			ID:                     "gid://shopify/Order/5123",
			Name:                   "#1573",
			DisplayFinancialStatus: "PAID",
			ShippingAddress:        &types.ShippingAddress{Name: "Ansh Singh"},
			LineItems: []types.LineItem{
				{
					Title:             "Florence",
					VariantTitle:      "Double Armoured Case",
					Quantity:          2,
					OriginalUnitPrice: 499,
					CustomAttributes: []types.Attribute{
						{Key: "Brand", Value: "Apple"},
						{Key: "Model", Value: "Brand: Apple :Model: Apple iPhone 15 Pro Max"},
					},
					Variant: &types.Variant{SKU: "101", UnitCost: cost(120)},
					Product: &types.Product{Handle: "florence"},
				},
			},
		},
	}

	rows := ProcessOrders(orders, Options{StoreDomain: "shop.example.com"})
	require.Len(t, rows, 2)

	row := rows[0]
	assert.Equal(t, "Premium Tough Case", row.Category)
	assert.Equal(t, "iPhone 15 Pro Max", row.Model)
	assert.Equal(t, "101", row.SKU)
	assert.Equal(t, "Ansh Singh", row.CustomerName)
	assert.Equal(t, "1573", row.OrderID)
	assert.Equal(t, "https://shop.example.com/products/florence", row.PreviewURL)
	assert.Equal(t, types.PaymentPrepaid, row.Payment)
	assert.InDelta(t, 120.0, row.COGS, 0.001)
	assert.InDelta(t, 499.0, row.Price, 0.001)
	assert.Equal(t, "gid://shopify/Order/5123", row.ID)
	assert.Equal(t, rows[0], rows[1])
}

func TestProcessOrders_GuestAndDefaults(t *testing.T) {
	orders := []*types.CanonicalOrder{
		{
			Name:      "#9",
			LineItems: []types.LineItem{{Title: "Case"}},
		},
	}

	rows := ProcessOrders(orders, Options{})
	require.Len(t, rows, 1)
	assert.Equal(t, "Guest", rows[0].CustomerName)
	assert.Equal(t, "Default", rows[0].Category)
	assert.Equal(t, types.PaymentCOD, rows[0].Payment)
	assert.Empty(t, rows[0].PreviewURL)
}

func TestPaymentMethod(t *testing.T) {
	tests := []struct {
		name  string
		order types.CanonicalOrder
		want  string
	}{
		{name: "paid", order: types.CanonicalOrder{DisplayFinancialStatus: "PAID"}, want: types.PaymentPrepaid},
		{name: "razorpay pending", order: types.CanonicalOrder{DisplayFinancialStatus: "PENDING", PaymentGatewayNames: []string{"Razorpay Secure"}}, want: types.PaymentPrepaid},
		{name: "paypal", order: types.CanonicalOrder{PaymentGatewayNames: []string{"manual", "PayPal Express"}}, want: types.PaymentPrepaid},
		{name: "cod", order: types.CanonicalOrder{DisplayFinancialStatus: "PENDING", PaymentGatewayNames: []string{"Cash on Delivery (COD)"}}, want: types.PaymentCOD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PaymentMethod(&tt.order))
		})
	}
}

func TestMapCategory(t *testing.T) {
	assert.Equal(t, "Premium Tough Case", MapCategory("Double Armoured / Black"))
	assert.Equal(t, "Premium Hard Case", MapCategory("Slim Snap Case"))
	assert.Equal(t, "Leather Wallet", MapCategory("Leather Wallet"))
	assert.Equal(t, "", MapCategory(""))
}

func TestCleanModelName(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		brand string
		attrs []types.Attribute
		want  string
	}{
		{name: "structured apple", raw: "Brand: Apple :Model: Apple iPhone 15 Pro Max", want: "iPhone 15 Pro Max"},
		{name: "apple prefix", raw: "Apple iPhone 13", want: "iPhone 13"},
		{name: "samsung prefix added", raw: "Galaxy S24 Ultra", want: "Samsung Galaxy S24 Ultra"},
		{name: "samsung prefix kept", raw: "Samsung Galaxy A55", want: "Samsung Galaxy A55"},
		{name: "device label", raw: "Device: Pixel 8", want: "Pixel 8"},
		{name: "explicit brand", raw: "S23", brand: "Samsung", want: "Samsung S23"},
		{name: "leading colon", raw: ": OnePlus 12", want: "OnePlus 12"},
		{
			name:  "attribute overrides raw",
			raw:   "Florence",
			attrs: []types.Attribute{{Key: "Phone Model", Value: "iPhone 14"}},
			want:  "iPhone 14",
		},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanModelName(tt.raw, tt.brand, tt.attrs))
		})
	}
}

func TestGripPadModel(t *testing.T) {
	tests := []struct {
		name string
		item types.LineItem
		want string
	}{
		{
			name: "handle metafield wins",
			item: types.LineItem{Variant: &types.Variant{HandleMetafield: "black", ColorHandle: "red"}},
			want: "Black",
		},
		{
			name: "color handle next",
			item: types.LineItem{Variant: &types.Variant{ColorHandle: "hot pink"}},
			want: "Hot pink",
		},
		{
			name: "color option mapped",
			item: types.LineItem{Variant: &types.Variant{SelectedOptions: []types.SelectedOption{
				{Name: "Size", Value: "Large"},
				{Name: "Color", Value: " Butter Yellow "},
			}}},
			want: "Neon Yellow",
		},
		{
			name: "first option when nothing matches",
			item: types.LineItem{Variant: &types.Variant{SelectedOptions: []types.SelectedOption{{Name: "Size", Value: "eclipse"}}}},
			want: "Black",
		},
		{
			name: "unmapped color kept",
			item: types.LineItem{Variant: &types.Variant{SelectedOptions: []types.SelectedOption{{Name: "Style", Value: "lavender"}}}},
			want: "Lavender",
		},
		{
			name: "product handle fallback",
			item: types.LineItem{Product: &types.Product{Handle: "grip-pad-classic"}},
			want: "grip-pad-classic",
		},
		{
			name: "long names untouched",
			item: types.LineItem{Variant: &types.Variant{HandleMetafield: "black suction sticky grip"}},
			want: "black suction sticky grip",
		},
		{
			name: "nothing at all",
			item: types.LineItem{},
			want: "GripPad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GripPadModel(&tt.item))
		})
	}
}

func TestProcessOrders_GripPadCategory(t *testing.T) {
	orders := []*types.CanonicalOrder{{
		Name: "#10",
		LineItems: []types.LineItem{{
			Title:    "MagSafe Suction Sticky Grip",
			Quantity: 1,
			Variant:  &types.Variant{Title: "Flamingo", SelectedOptions: []types.SelectedOption{{Name: "Color", Value: "Flamingo"}}},
		}},
	}}

	rows := ProcessOrders(orders, Options{})
	require.Len(t, rows, 1)
	assert.Equal(t, "GripPad", rows[0].Category)
	assert.Equal(t, "Hot Pink", rows[0].Model)
}

func TestSummarize(t *testing.T) {
	rows := []types.OrderRow{
		{OrderID: "1", COGS: 100, Price: 499},
		{OrderID: "1", COGS: 100, Price: 499},
		{OrderID: "2", COGS: 50, Price: 299},
	}

	stats := Summarize(rows, 18)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 3, stats.TotalItems)
	assert.InDelta(t, 250.0, stats.Subtotal, 0.001)
	assert.InDelta(t, 1297.0, stats.Revenue, 0.001)
	assert.InDelta(t, 45.0, stats.GST, 0.001)
	assert.InDelta(t, 295.0, stats.Total, 0.001)
	assert.Equal(t, 2, UniqueOrderCount(rows))
}
