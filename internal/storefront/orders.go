package storefront

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// DefaultLookbackDays is the window used when no date range is given.
const DefaultLookbackDays = 3

const lineItemFields = `
  title
  variantTitle
  sku
  quantity
  originalUnitPriceSet { shopMoney { amount } }
  customAttributes { key value }
  variant {
    id
    title
    sku
    handleMetafield: metafield(namespace: "custom", key: "handle") { value }
    colorHandle: metafield(namespace: "custom", key: "color_handle") { value }
    selectedOptions { name value }
    inventoryItem { unitCost { amount } }
  }
  product { id handle onlineStoreUrl productType }
`

const orderFields = `
  id
  legacyResourceId
  name
  email
  phone
  createdAt
  displayFinancialStatus
  paymentGatewayNames
  risk { assessments { riskLevel } }
  shippingAddress { name address1 address2 city zip province country phone }
  lineItems(first: 100) { edges { node {` + lineItemFields + `} } }
`

const unfulfilledOrdersQuery = `
query GetUnfulfilledOrders($cursor: String, $query: String!) {
  orders(first: 50, after: $cursor, query: $query, sortKey: CREATED_AT, reverse: true) {
    pageInfo { hasNextPage endCursor }
    edges { node {` + orderFields + `} }
  }
}`

const orderQuery = `
query GetOrder($id: ID!) {
  order(id: $id) {` + orderFields + `}
}`

type money struct {
	Amount string `json:"amount"`
}

type metafield struct {
	Value string `json:"value"`
}

type lineItemNode struct {
	Title                string `json:"title"`
	VariantTitle         string `json:"variantTitle"`
	SKU                  string `json:"sku"`
	Quantity             int    `json:"quantity"`
	OriginalUnitPriceSet struct {
		ShopMoney money `json:"shopMoney"`
	} `json:"originalUnitPriceSet"`
	CustomAttributes []types.Attribute `json:"customAttributes"`
	Variant          *struct {
		ID              string                 `json:"id"`
		Title           string                 `json:"title"`
		SKU             string                 `json:"sku"`
		HandleMetafield *metafield             `json:"handleMetafield"`
		ColorHandle     *metafield             `json:"colorHandle"`
		SelectedOptions []types.SelectedOption `json:"selectedOptions"`
		InventoryItem   *struct {
			UnitCost *money `json:"unitCost"`
		} `json:"inventoryItem"`
	} `json:"variant"`
	Product *types.Product `json:"product"`
}

type orderNode struct {
	ID                     string   `json:"id"`
	LegacyResourceID       string   `json:"legacyResourceId"`
	Name                   string   `json:"name"`
	Email                  string   `json:"email"`
	Phone                  string   `json:"phone"`
	CreatedAt              string   `json:"createdAt"`
	DisplayFinancialStatus string   `json:"displayFinancialStatus"`
	PaymentGatewayNames    []string `json:"paymentGatewayNames"`
	Risk                   *struct {
		Assessments []struct {
			RiskLevel string `json:"riskLevel"`
		} `json:"assessments"`
	} `json:"risk"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress"`
	LineItems       struct {
		Edges []struct {
			Node lineItemNode `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

// FetchOptions selects the window of orders to list.
type FetchOptions struct {
	DaysLookback int
	// StartDate and EndDate are YYYY-MM-DD; StartDate overrides DaysLookback.
	StartDate string
	EndDate   string
}

// SearchFilter builds the orders query string for opts relative to now.
func SearchFilter(opts FetchOptions, now time.Time) string {
	var b strings.Builder
	b.WriteString("fulfillment_status:unfulfilled status:open")

	if opts.StartDate != "" {
		fmt.Fprintf(&b, " created_at:>=%s", opts.StartDate)
	} else {
		days := opts.DaysLookback
		if days <= 0 {
			days = DefaultLookbackDays
		}
		since := now.AddDate(0, 0, -days).UTC().Format(time.RFC3339)
		fmt.Fprintf(&b, " created_at:>=%s", since)
	}
	if opts.EndDate != "" {
		fmt.Fprintf(&b, " created_at:<=%sT23:59:59Z", opts.EndDate)
	}
	return b.String()
}

// GetUnfulfilledOrders lists open, unfulfilled orders newest first, following every page.
func (c *Client) GetUnfulfilledOrders(ctx context.Context, opts FetchOptions) ([]*types.CanonicalOrder, error) {
	filter := SearchFilter(opts, c.now())
	c.logger.Info("fetching unfulfilled orders", zap.String("filter", filter))

	var (
		orders []*types.CanonicalOrder
		cursor *string
	)
	for {
		var data struct {
			Orders struct {
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
				Edges []struct {
					Node orderNode `json:"node"`
				} `json:"edges"`
			} `json:"orders"`
		}

		vars := map[string]any{"query": filter, "cursor": cursor}
		if err := c.graphql(ctx, unfulfilledOrdersQuery, vars, &data); err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}

		for _, e := range data.Orders.Edges {
			orders = append(orders, e.Node.canonical())
		}

		if !data.Orders.PageInfo.HasNextPage || data.Orders.PageInfo.EndCursor == "" {
			break
		}
		next := data.Orders.PageInfo.EndCursor
		cursor = &next
	}

	c.logger.Info("orders fetched", zap.Int("count", len(orders)))
	return orders, nil
}

// GetOrder fetches one order by numeric id or GID.
func (c *Client) GetOrder(ctx context.Context, id string) (*types.CanonicalOrder, error) {
	gid := id
	if !strings.HasPrefix(id, "gid://") {
		gid = "gid://shopify/Order/" + id
	}

	var data struct {
		Order *orderNode `json:"order"`
	}
	if err := c.graphql(ctx, orderQuery, map[string]any{"id": gid}, &data); err != nil {
		return nil, err
	}
	if data.Order == nil {
		return nil, &NotFoundError{Resource: "order", ID: id}
	}
	return data.Order.canonical(), nil
}

// riskRank orders assessment levels so the most severe one wins.
var riskRank = map[string]int{
	"":               0,
	"NONE":           0,
	types.RiskLow:    1,
	"PENDING":        1,
	types.RiskMedium: 2,
	types.RiskHigh:   3,
}

func (n *orderNode) canonical() *types.CanonicalOrder {
	order := &types.CanonicalOrder{
		ID:                     n.ID,
		LegacyResourceID:       n.LegacyResourceID,
		Name:                   n.Name,
		Email:                  n.Email,
		Phone:                  n.Phone,
		DisplayFinancialStatus: n.DisplayFinancialStatus,
		PaymentGatewayNames:    n.PaymentGatewayNames,
		ShippingAddress:        n.ShippingAddress,
	}
	if t, err := time.Parse(time.RFC3339, n.CreatedAt); err == nil {
		order.CreatedAt = t
	}

	if n.Risk != nil {
		for _, a := range n.Risk.Assessments {
			if riskRank[a.RiskLevel] > riskRank[order.RiskLevel] {
				order.RiskLevel = a.RiskLevel
			}
		}
	}

	for _, e := range n.LineItems.Edges {
		order.LineItems = append(order.LineItems, e.Node.canonical())
	}
	return order
}

func (n *lineItemNode) canonical() types.LineItem {
	item := types.LineItem{
		Title:             n.Title,
		VariantTitle:      n.VariantTitle,
		SKU:               n.SKU,
		Quantity:          n.Quantity,
		OriginalUnitPrice: parseAmount(n.OriginalUnitPriceSet.ShopMoney.Amount),
		CustomAttributes:  n.CustomAttributes,
		Product:           n.Product,
	}

	if v := n.Variant; v != nil {
		variant := &types.Variant{
			ID:              v.ID,
			Title:           v.Title,
			SKU:             v.SKU,
			SelectedOptions: v.SelectedOptions,
		}
		if v.HandleMetafield != nil {
			variant.HandleMetafield = v.HandleMetafield.Value
		}
		if v.ColorHandle != nil {
			variant.ColorHandle = v.ColorHandle.Value
		}
		if v.InventoryItem != nil && v.InventoryItem.UnitCost != nil {
			cost := parseAmount(v.InventoryItem.UnitCost.Amount)
			variant.UnitCost = &cost
		}
		item.Variant = variant
	}
	return item
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
