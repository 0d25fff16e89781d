package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

type gqlHandler func(t *testing.T, query string, vars map[string]any) string

func newTestClient(t *testing.T, handle gqlHandler) (*Client, *int32) {
	t.Helper()

	var tokens int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokens, 1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "client_credentials", body["grant_type"])
		_, _ = w.Write([]byte(`{"access_token":"shpat_test"}`))
	})
	mux.HandleFunc("POST /admin/api/2026-01/graphql.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		var req graphqlRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(handle(t, req.Query, req.Variables)))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL, ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	return client, &tokens
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "https://My-Store.myshopify.com/admin", want: "my-store.myshopify.com"},
		{raw: "my-store", want: "my-store.myshopify.com"},
		{raw: "  shop.example.com ", want: "shop.example.com"},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeDomain(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotConfigured)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchFilter(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t,
		"fulfillment_status:unfulfilled status:open created_at:>=2026-05-07T12:00:00Z",
		SearchFilter(FetchOptions{}, now))
	assert.Equal(t,
		"fulfillment_status:unfulfilled status:open created_at:>=2026-05-03T12:00:00Z",
		SearchFilter(FetchOptions{DaysLookback: 7}, now))
	assert.Equal(t,
		"fulfillment_status:unfulfilled status:open created_at:>=2026-05-01 created_at:<=2026-05-05T23:59:59Z",
		SearchFilter(FetchOptions{StartDate: "2026-05-01", EndDate: "2026-05-05"}, now))
}

const orderJSON = `{
  "id": "gid://shopify/Order/5123",
  "legacyResourceId": "5123",
  "name": "#1573",
  "phone": "+91 9876543210",
  "createdAt": "2026-05-09T10:00:00Z",
  "displayFinancialStatus": "PAID",
  "paymentGatewayNames": ["razorpay"],
  "risk": {"assessments": [{"riskLevel": "LOW"}, {"riskLevel": "HIGH"}]},
  "shippingAddress": {"name": "Ansh Singh", "address1": "House 4, Comlia Complex", "zip": "110001"},
  "lineItems": {"edges": [{"node": {
    "title": "Double Armoured Case",
    "quantity": 2,
    "originalUnitPriceSet": {"shopMoney": {"amount": "499.00"}},
    "variant": {
      "id": "gid://shopify/ProductVariant/1",
      "title": "iPhone 15 Pro",
      "sku": "101",
      "handleMetafield": {"value": "eclipse"},
      "colorHandle": null,
      "inventoryItem": {"unitCost": {"amount": "120.50"}}
    },
    "product": {"id": "gid://shopify/Product/9", "handle": "double-armoured"}
  }}]}
}`

func TestGetOrder(t *testing.T) {
	client, _ := newTestClient(t, func(t *testing.T, query string, vars map[string]any) string {
		assert.Contains(t, query, "GetOrder")
		assert.Equal(t, "gid://shopify/Order/5123", vars["id"])
		return `{"data":{"order":` + orderJSON + `}}`
	})

	order, err := client.GetOrder(context.Background(), "5123")
	require.NoError(t, err)
	assert.Equal(t, "#1573", order.Name)
	assert.Equal(t, types.RiskHigh, order.RiskLevel)
	assert.Equal(t, "Ansh Singh", order.CustomerName())
	assert.Equal(t, 2026, order.CreatedAt.Year())
	require.Len(t, order.LineItems, 1)

	item := order.LineItems[0]
	assert.Equal(t, 2, item.Quantity)
	assert.InDelta(t, 499.0, item.OriginalUnitPrice, 0.001)
	require.NotNil(t, item.Variant)
	assert.Equal(t, "eclipse", item.Variant.HandleMetafield)
	assert.Empty(t, item.Variant.ColorHandle)
	require.NotNil(t, item.Variant.UnitCost)
	assert.InDelta(t, 120.5, *item.Variant.UnitCost, 0.001)
	assert.Equal(t, "double-armoured", item.Product.Handle)
}

func TestGetOrder_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(t *testing.T, query string, vars map[string]any) string {
		return `{"data":{"order":null}}`
	})

	_, err := client.GetOrder(context.Background(), "gid://shopify/Order/1")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "order", nf.Resource)
}

func TestGetOrder_GraphQLError(t *testing.T) {
	client, _ := newTestClient(t, func(t *testing.T, query string, vars map[string]any) string {
		return `{"errors":[{"message":"Throttled"}]}`
	})

	_, err := client.GetOrder(context.Background(), "1")
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"Throttled"}, gqlErr.Messages)
	assert.Contains(t, err.Error(), "Throttled")
}

func TestGetUnfulfilledOrders_FollowsCursor(t *testing.T) {
	var calls int32
	client, tokens := newTestClient(t, func(t *testing.T, query string, vars map[string]any) string {
		assert.Contains(t, vars["query"], "fulfillment_status:unfulfilled status:open")
		if atomic.AddInt32(&calls, 1) == 1 {
			assert.Nil(t, vars["cursor"])
			return `{"data":{"orders":{"pageInfo":{"hasNextPage":true,"endCursor":"c1"},"edges":[{"node":{"id":"gid://shopify/Order/1","name":"#1"}}]}}}`
		}
		assert.Equal(t, "c1", vars["cursor"])
		return `{"data":{"orders":{"pageInfo":{"hasNextPage":false},"edges":[{"node":{"id":"gid://shopify/Order/2","name":"#2"}}]}}}`
	})

	orders, err := client.GetUnfulfilledOrders(context.Background(), FetchOptions{DaysLookback: 3})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "#1", orders[0].Name)
	assert.Equal(t, "#2", orders[1].Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(tokens), "token is cached between pages")
}

func TestAccessToken_Refreshes(t *testing.T) {
	client, tokens := newTestClient(t, func(t *testing.T, query string, vars map[string]any) string {
		return `{"data":{"order":null}}`
	})
	start := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return start }

	_, _ = client.GetOrder(context.Background(), "1")
	_, _ = client.GetOrder(context.Background(), "1")
	assert.Equal(t, int32(1), atomic.LoadInt32(tokens))

	client.now = func() time.Time { return start.Add(TokenLifetime + time.Minute) }
	_, _ = client.GetOrder(context.Background(), "1")
	assert.Equal(t, int32(2), atomic.LoadInt32(tokens))
}

func TestAssignSKU(t *testing.T) {
	var updated map[string]any
	client, _ := newTestClient(t, func(t *testing.T, query string, vars map[string]any) string {
		switch {
		case strings.Contains(query, "GetRecentProducts"):
			return `{"data":{"products":{"edges":[
				{"node":{"variants":{"edges":[{"node":{"sku":"104"}},{"node":{"sku":"ABC-1"}}]}}},
				{"node":{"variants":{"edges":[{"node":{"sku":"117"}},{"node":{"sku":""}}]}}}
			]}}}`
		case strings.Contains(query, "GetProductVariants"):
			assert.Equal(t, "gid://shopify/Product/9", vars["id"])
			return `{"data":{"product":{"variants":{"edges":[{"node":{"id":"v1"}},{"node":{"id":"v2"}}]}}}}`
		default:
			updated = vars
			return `{"data":{"productVariantsBulkUpdate":{"userErrors":[]}}}`
		}
	})

	sku, err := client.AssignSKU(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, "118", sku)
	require.NotNil(t, updated)
	variants, ok := updated["variants"].([]any)
	require.True(t, ok)
	assert.Len(t, variants, 2)
}

func TestNextSKU_DefaultsWhenNoNumericSKU(t *testing.T) {
	client, _ := newTestClient(t, func(t *testing.T, query string, vars map[string]any) string {
		return `{"data":{"products":{"edges":[{"node":{"variants":{"edges":[{"node":{"sku":"CASE-A"}}]}}}]}}}`
	})

	next, err := client.NextSKU(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FirstSKU, next)
}

func TestAssignSKU_UserErrors(t *testing.T) {
	client, _ := newTestClient(t, func(t *testing.T, query string, vars map[string]any) string {
		switch {
		case strings.Contains(query, "GetRecentProducts"):
			return `{"data":{"products":{"edges":[]}}}`
		case strings.Contains(query, "GetProductVariants"):
			return `{"data":{"product":{"variants":{"edges":[{"node":{"id":"v1"}}]}}}}`
		default:
			return `{"data":{"productVariantsBulkUpdate":{"userErrors":[{"field":["sku"],"message":"SKU is invalid"}]}}}`
		}
	})

	_, err := client.AssignSKU(context.Background(), "9")
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Contains(t, err.Error(), "SKU is invalid")
}
