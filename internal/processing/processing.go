// Package processing turns storefront orders into export rows: one row per purchased unit, with
// payment method, category, cleaned device model, SKU, preview link, and cost.
package processing

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// DefaultGSTRate is the GST percentage applied to COGS.
const DefaultGSTRate = 18.0

// Options configures ProcessOrders.
type Options struct {
	// StoreDomain is used to build preview links for products without a storefront URL.
	StoreDomain string
	Logger      *zap.Logger
}

var prepaidGateways = []string{"razorpay", "paytm", "stripe", "paypal"}

var (
	gripPadTitle    = regexp.MustCompile(`(?i)grip\s*pad|sticky\s*grip|suction`)
	gripPadCategory = regexp.MustCompile(`(?i)grip\s*pad|sticky\s*grip`)
	gripPadOption   = regexp.MustCompile(`(?i)color|style|model`)
	modelAttrKey    = regexp.MustCompile(`(?i)model|device`)
	brandAttrKey    = regexp.MustCompile(`(?i)brand`)
)

// gripPadColors maps storefront color names to the names the print partner uses.
var gripPadColors = map[string]string{
	"eclipse":       "Black",
	"bubblegum":     "BabyPink",
	"flamingo":      "Hot Pink",
	"neptune":       "Teal",
	"butter yellow": "Neon Yellow",
	"butteryellow":  "Neon Yellow",
	"cherry":        "Red",
	"citrus":        "Orange",
	"baby pink":     "BabyPink",
}

// ProcessOrders expands orders into export rows in input order.
func ProcessOrders(orders []*types.CanonicalOrder, opts Options) []types.OrderRow {
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}

	var rows []types.OrderRow
	for _, order := range orders {
		if order == nil {
			continue
		}

		orderID := strings.ReplaceAll(order.Name, "#", "")
		customer := "Guest"
		if order.ShippingAddress != nil && order.ShippingAddress.Name != "" {
			customer = order.ShippingAddress.Name
		}
		payment := PaymentMethod(order)

		for i := range order.LineItems {
			item := &order.LineItems[i]

			category := MapCategory(firstNonEmpty(item.VariantTitle, variantTitle(item), "Default"))

			var model string
			if gripPadTitle.MatchString(item.Title) || gripPadCategory.MatchString(category) {
				category = "GripPad"
				model = GripPadModel(item)
				logger.Debug("grippad model resolved",
					zap.String("order", order.Name),
					zap.String("title", item.Title),
					zap.String("model", model),
				)
			} else {
				rawModel := findAttr(item.CustomAttributes, modelAttrKey)
				rawBrand := findAttr(item.CustomAttributes, brandAttrKey)
				model = CleanModelName(rawModel, rawBrand, item.CustomAttributes)
			}

			row := types.OrderRow{
				Category:     category,
				Model:        model,
				SKU:          lineItemSKU(item),
				CustomerName: customer,
				OrderID:      orderID,
				PreviewURL:   previewURL(item.Product, opts.StoreDomain),
				Payment:      payment,
				COGS:         unitCost(item),
				Price:        item.OriginalUnitPrice,
				ID:           order.ID,
			}

			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			for n := 0; n < qty; n++ {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// PaymentMethod reports Prepaid for paid orders or orders paid through an online gateway.
func PaymentMethod(order *types.CanonicalOrder) string {
	if order.DisplayFinancialStatus == "PAID" {
		return types.PaymentPrepaid
	}
	gateways := strings.ToLower(strings.Join(order.PaymentGatewayNames, " "))
	for _, g := range prepaidGateways {
		if strings.Contains(gateways, g) {
			return types.PaymentPrepaid
		}
	}
	return types.PaymentCOD
}

// MapCategory renames storefront variant titles to print-partner categories.
func MapCategory(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "double armoured"):
		return "Premium Tough Case"
	case strings.Contains(lower, "slim snap case"):
		return "Premium Hard Case"
	}
	return raw
}

// GripPadModel picks the grip color: handle metafield, then color handle metafield, then the
// first color/style/model option (mapped through the color table), then the product handle.
func GripPadModel(item *types.LineItem) string {
	var model string
	v := item.Variant
	switch {
	case v != nil && v.HandleMetafield != "":
		model = v.HandleMetafield
	case v != nil && v.ColorHandle != "":
		model = v.ColorHandle
	default:
		value := gripPadOptionValue(v)
		switch {
		case value != "":
			if mapped, ok := gripPadColors[strings.ToLower(strings.TrimSpace(value))]; ok {
				model = mapped
			} else {
				model = value
			}
		case item.Product != nil && item.Product.Handle != "":
			model = item.Product.Handle
		default:
			model = "GripPad"
		}
	}

	if len(model) < 20 && !strings.Contains(strings.ToLower(model), "grip") {
		r, size := utf8.DecodeRuneInString(model)
		model = string(unicode.ToUpper(r)) + model[size:]
	}
	return model
}

func gripPadOptionValue(v *types.Variant) string {
	if v == nil || len(v.SelectedOptions) == 0 {
		return ""
	}
	for _, o := range v.SelectedOptions {
		if gripPadOption.MatchString(o.Name) {
			return o.Value
		}
	}
	return v.SelectedOptions[0].Value
}

var (
	modelPrefix      = regexp.MustCompile(`(?i).*Model:\s*`)
	labelPrefixes    = regexp.MustCompile(`(?i)(Brand:|Device:)\s*`)
	leadingSeparator = regexp.MustCompile(`^[:\s]+`)
	applePrefix      = regexp.MustCompile(`(?i)^apple\s+`)
	appleIPhone      = regexp.MustCompile(`(?i)apple\s*iphone`)
)

// CleanModelName extracts a device model from line item properties.
// "Brand: Apple :Model: Apple iPhone 15 Pro Max" becomes "iPhone 15 Pro Max" and a bare
// "Galaxy S24" becomes "Samsung Galaxy S24".
func CleanModelName(rawModel, brand string, attrs []types.Attribute) string {
	model := strings.TrimSpace(rawModel)

	if attrModel := findAttrContaining(attrs, "model"); attrModel != "" {
		model = attrModel
		if brand == "" {
			brand = findAttrContaining(attrs, "brand")
		}
	}

	if strings.Contains(strings.ToLower(model), "model:") {
		model = modelPrefix.ReplaceAllString(model, "")
	}
	model = labelPrefixes.ReplaceAllString(model, "")
	model = leadingSeparator.ReplaceAllString(model, "")

	modelLower := strings.ToLower(model)
	detected := strings.ToLower(brand)
	if detected == "" {
		switch {
		case containsAny(modelLower, "iphone", "ipad", "apple"):
			detected = "apple"
		case containsAny(modelLower, "samsung", "galaxy"):
			detected = "samsung"
		case containsAny(modelLower, "google", "pixel"):
			detected = "google"
		case strings.Contains(modelLower, "oneplus"):
			detected = "oneplus"
		}
	}

	switch detected {
	case "apple":
		model = applePrefix.ReplaceAllString(model, "")
		if loc := appleIPhone.FindStringIndex(model); loc != nil {
			model = model[:loc[0]] + "iPhone" + model[loc[1]:]
		}
	case "samsung":
		if !strings.HasPrefix(modelLower, "samsung") {
			model = "Samsung " + model
		}
	}
	return strings.TrimSpace(model)
}

func findAttr(attrs []types.Attribute, key *regexp.Regexp) string {
	for _, a := range attrs {
		if key.MatchString(a.Key) {
			return a.Value
		}
	}
	return ""
}

func findAttrContaining(attrs []types.Attribute, key string) string {
	for _, a := range attrs {
		if a.Key != "" && strings.Contains(strings.ToLower(a.Key), key) {
			return a.Value
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func variantTitle(item *types.LineItem) string {
	if item.Variant != nil {
		return item.Variant.Title
	}
	return ""
}

func lineItemSKU(item *types.LineItem) string {
	if item.SKU != "" {
		return item.SKU
	}
	if item.Variant != nil {
		return item.Variant.SKU
	}
	return ""
}

func unitCost(item *types.LineItem) float64 {
	if item.Variant != nil && item.Variant.UnitCost != nil {
		return *item.Variant.UnitCost
	}
	return 0
}

func previewURL(p *types.Product, storeDomain string) string {
	if p == nil {
		return ""
	}
	if p.OnlineStoreURL != "" {
		return p.OnlineStoreURL
	}
	if p.Handle != "" && storeDomain != "" {
		return "https://" + storeDomain + "/products/" + p.Handle
	}
	return ""
}
