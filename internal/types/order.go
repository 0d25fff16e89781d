// Package types provides type definitions for structured data used throughout the fulfillment agent.
package types

import (
	"strings"
	"time"
)

// Payment labels used on export rows.
const (
	PaymentPrepaid = "Prepaid"
	PaymentCOD     = "Cash on Delivery"
)

// Storefront risk levels.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// OrderRow is one exported line item. Rows are immutable once stored in a batch.
type OrderRow struct {
	Category     string   `json:"category"`
	Model        string   `json:"model"`
	SKU          string   `json:"sku"`
	CustomerName string   `json:"customerName"`
	OrderID      string   `json:"orderId"`
	PreviewURL   string   `json:"previewUrl,omitempty"`
	Payment      string   `json:"payment"`
	COGS         float64  `json:"cogs"`
	Price        float64  `json:"price,omitempty"`
	ShippingCost *float64 `json:"shippingCost,omitempty"`

	// ID and OrderLink are optional references to the storefront order. When present they
	// take precedence over OrderID during order resolution.
	ID        string `json:"id,omitempty"`
	OrderLink string `json:"orderLink,omitempty"`
}

// ShippingAddress is the destination of a storefront order.
type ShippingAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Attribute is a key/value pair attached to a line item (custom properties).
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SelectedOption is a variant option such as Color or Style.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant is the purchased product variant.
type Variant struct {
	ID              string           `json:"id,omitempty"`
	Title           string           `json:"title,omitempty"`
	SKU             string           `json:"sku,omitempty"`
	HandleMetafield string           `json:"handleMetafield,omitempty"`
	ColorHandle     string           `json:"colorHandle,omitempty"`
	SelectedOptions []SelectedOption `json:"selectedOptions,omitempty"`
	UnitCost        *float64         `json:"unitCost,omitempty"`
}

// Product is the product a line item belongs to.
type Product struct {
	ID             string `json:"id,omitempty"`
	Handle         string `json:"handle,omitempty"`
	OnlineStoreURL string `json:"onlineStoreUrl,omitempty"`
	ProductType    string `json:"productType,omitempty"`
}

// LineItem is a single purchased item on a storefront order.
type LineItem struct {
	Title             string      `json:"title"`
	VariantTitle      string      `json:"variantTitle,omitempty"`
	SKU               string      `json:"sku,omitempty"`
	Quantity          int         `json:"quantity"`
	OriginalUnitPrice float64     `json:"originalUnitPrice"`
	CustomAttributes  []Attribute `json:"customAttributes,omitempty"`
	Variant           *Variant    `json:"variant,omitempty"`
	Product           *Product    `json:"product,omitempty"`
}

// CanonicalOrder is the authoritative order record fetched from the storefront.
// It is never persisted.
type CanonicalOrder struct {
	ID                     string           `json:"id"`
	LegacyResourceID       string           `json:"legacyResourceId,omitempty"`
	Name                   string           `json:"name"`
	Email                  string           `json:"email,omitempty"`
	Phone                  string           `json:"phone,omitempty"`
	RiskLevel              string           `json:"riskLevel,omitempty"`
	DisplayFinancialStatus string           `json:"displayFinancialStatus,omitempty"`
	PaymentGatewayNames    []string         `json:"paymentGatewayNames,omitempty"`
	CreatedAt              time.Time        `json:"createdAt"`
	ShippingAddress        *ShippingAddress `json:"shippingAddress,omitempty"`
	LineItems              []LineItem       `json:"lineItems,omitempty"`
}

// ContactPhone returns the order phone, falling back to the shipping address phone.
func (o *CanonicalOrder) ContactPhone() string {
	if o.Phone != "" {
		return o.Phone
	}
	if o.ShippingAddress != nil {
		return o.ShippingAddress.Phone
	}
	return ""
}

// CustomerName returns the shipping name or "Unknown".
func (o *CanonicalOrder) CustomerName() string {
	if o.ShippingAddress != nil && o.ShippingAddress.Name != "" {
		return o.ShippingAddress.Name
	}
	return "Unknown"
}

// NumericID returns the trailing segment of the storefront GID ("gid://shopify/Order/123" -> "123").
func (o *CanonicalOrder) NumericID() string {
	return LastPathSegment(o.ID)
}

// LastPathSegment returns the part of s after its final slash.
func LastPathSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
