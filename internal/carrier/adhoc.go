package carrier

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// Package defaults applied to every ad-hoc order. Dimensions are in centimetres.
const (
	DefaultLength  = 8.0
	DefaultBreadth = 5.0
	DefaultHeight  = 2.0
	DefaultWeight  = 0.5 // kg

	DefaultPickupLocation = "Primary"
)

// Address fallbacks for orders that reach the carrier with gaps.
const (
	fallbackPhone   = "9999999999"
	fallbackEmail   = "noreply@cloutcases.in"
	fallbackName    = "Customer"
	fallbackAddress = "No Address"
	fallbackCity    = "City"
	fallbackPincode = "110001"
	fallbackState   = "Delhi"
	fallbackCountry = "India"
	fallbackSKU     = "Ref-SKU"
)

// AdhocItem is one line of an ad-hoc order.
type AdhocItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
	Discount     float64 `json:"discount"`
	Tax          float64 `json:"tax"`
	HSN          int     `json:"hsn"`
}

// AdhocOrder is the create/update payload of a carrier order.
type AdhocOrder struct {
	OrderID             string      `json:"order_id"`
	OrderDate           string      `json:"order_date"`
	PickupLocation      string      `json:"pickup_location"`
	BillingCustomerName string      `json:"billing_customer_name"`
	BillingLastName     string      `json:"billing_last_name"`
	BillingAddress      string      `json:"billing_address"`
	BillingAddress2     string      `json:"billing_address_2"`
	BillingCity         string      `json:"billing_city"`
	BillingPincode      string      `json:"billing_pincode"`
	BillingState        string      `json:"billing_state"`
	BillingCountry      string      `json:"billing_country"`
	BillingEmail        string      `json:"billing_email"`
	BillingPhone        string      `json:"billing_phone"`
	ShippingIsBilling   bool        `json:"shipping_is_billing"`
	OrderItems          []AdhocItem `json:"order_items"`
	PaymentMethod       string      `json:"payment_method"`
	SubTotal            float64     `json:"sub_total"`
	Length              float64     `json:"length"`
	Breadth             float64     `json:"breadth"`
	Height              float64     `json:"height"`
	Weight              float64     `json:"weight"`
}

// OrderResult is the outcome of creating or updating a carrier order. Duplicate is set when
// the carrier already holds an order with the same id.
type OrderResult struct {
	Success    bool
	ShipmentID int64
	OrderID    int64
	Duplicate  bool
	Error      string
}

type adhocResponse struct {
	OrderID    flexInt64 `json:"order_id"`
	ShipmentID flexInt64 `json:"shipment_id"`
	Status     string    `json:"status"`
}

// BuildAdhocOrder maps a storefront order onto the carrier payload with the default package.
func (c *Client) BuildAdhocOrder(order *types.CanonicalOrder) AdhocOrder {
	addr := order.ShippingAddress
	if addr == nil {
		addr = &types.ShippingAddress{}
	}

	first, last := splitName(addr.Name)
	date := order.CreatedAt
	if date.IsZero() {
		date = c.now()
	}

	items := make([]AdhocItem, 0, len(order.LineItems))
	var subTotal float64
	for _, li := range order.LineItems {
		units := li.Quantity
		if units < 1 {
			units = 1
		}
		sku := li.SKU
		if sku == "" && li.Variant != nil {
			sku = li.Variant.SKU
		}
		items = append(items, AdhocItem{
			Name:         li.Title,
			SKU:          orDefault(sku, fallbackSKU),
			Units:        units,
			SellingPrice: li.OriginalUnitPrice,
		})
		subTotal += li.OriginalUnitPrice * float64(units)
	}

	payment := "COD"
	if order.DisplayFinancialStatus == "PAID" {
		payment = "Prepaid"
	}

	return AdhocOrder{
		OrderID:             types.LastPathSegment(order.ID),
		OrderDate:           date.Format("2006-01-02 15:04"),
		PickupLocation:      DefaultPickupLocation,
		BillingCustomerName: first,
		BillingLastName:     last,
		BillingAddress:      orDefault(addr.Address1, fallbackAddress),
		BillingAddress2:     addr.Address2,
		BillingCity:         orDefault(addr.City, fallbackCity),
		BillingPincode:      orDefault(addr.Zip, fallbackPincode),
		BillingState:        orDefault(addr.Province, fallbackState),
		BillingCountry:      orDefault(addr.Country, fallbackCountry),
		BillingEmail:        orDefault(order.Email, fallbackEmail),
		BillingPhone:        BillingPhone(order.ContactPhone()),
		ShippingIsBilling:   true,
		OrderItems:          items,
		PaymentMethod:       payment,
		SubTotal:            subTotal,
		Length:              DefaultLength,
		Breadth:             DefaultBreadth,
		Height:              DefaultHeight,
		Weight:              DefaultWeight,
	}
}

// CreateOrder creates an ad-hoc carrier order. A rejection because the order already exists
// is reported as Duplicate rather than a plain failure.
func (c *Client) CreateOrder(ctx context.Context, order *types.CanonicalOrder) OrderResult {
	return c.postOrder(ctx, "/v1/external/orders/create/adhoc", order, true)
}

// UpdateOrder re-posts an existing carrier order, which also resets its package to the defaults.
func (c *Client) UpdateOrder(ctx context.Context, order *types.CanonicalOrder) OrderResult {
	return c.postOrder(ctx, "/v1/external/orders/update/adhoc", order, false)
}

func (c *Client) postOrder(ctx context.Context, path string, order *types.CanonicalOrder, detectDuplicate bool) OrderResult {
	var resp adhocResponse
	if err := c.do(ctx, http.MethodPost, path, c.BuildAdhocOrder(order), &resp); err != nil {
		msg := Message(err)
		c.logger.Warn("carrier order request failed",
			append(fieldsForError(err), zap.String("order", order.Name))...)
		return OrderResult{Duplicate: detectDuplicate && isDuplicate(err), Error: msg}
	}

	c.logger.Debug("carrier order saved",
		zap.String("order", order.Name),
		zap.Int64("shipment_id", int64(resp.ShipmentID)),
	)
	return OrderResult{Success: true, ShipmentID: int64(resp.ShipmentID), OrderID: int64(resp.OrderID)}
}

func isDuplicate(err error) bool {
	if IsAuthenticationError(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
		return true
	}
	return strings.Contains(Message(err), "already exists")
}

// BillingPhone reduces a phone to the 10 digits the carrier accepts, keeping the last ten of
// longer numbers. Shorter numbers are replaced by a placeholder.
func BillingPhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	if len(digits) < 10 {
		return fallbackPhone
	}
	return digits
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return fallbackName, ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
