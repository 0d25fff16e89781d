package storefront

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// FirstSKU is assigned when no numeric SKU exists yet.
const FirstSKU = 100

const recentProductSKUsQuery = `
query GetRecentProducts {
  products(first: 250, sortKey: CREATED_AT, reverse: true) {
    edges { node { variants(first: 20) { edges { node { sku } } } } }
  }
}`

const productVariantsQuery = `
query GetProductVariants($id: ID!) {
  product(id: $id) {
    variants(first: 100) { edges { node { id } } }
  }
}`

const variantsBulkUpdateMutation = `
mutation UpdateVariantSKUs($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    productVariants { id sku }
    userErrors { field message }
  }
}`

var numericSKU = regexp.MustCompile(`^\d+$`)

// NextSKU returns one more than the highest numeric SKU among the 250 most recent products.
func (c *Client) NextSKU(ctx context.Context) (int, error) {
	var data struct {
		Products struct {
			Edges []struct {
				Node struct {
					Variants struct {
						Edges []struct {
							Node struct {
								SKU string `json:"sku"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"variants"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := c.graphql(ctx, recentProductSKUsQuery, nil, &data); err != nil {
		return 0, fmt.Errorf("failed to list product SKUs: %w", err)
	}

	maxSKU := 0
	for _, p := range data.Products.Edges {
		for _, v := range p.Node.Variants.Edges {
			if !numericSKU.MatchString(v.Node.SKU) {
				continue
			}
			if n, err := strconv.Atoi(v.Node.SKU); err == nil && n > maxSKU {
				maxSKU = n
			}
		}
	}

	if maxSKU == 0 {
		return FirstSKU, nil
	}
	return maxSKU + 1, nil
}

// AssignSKU gives every variant of a product the next free numeric SKU and returns it.
func (c *Client) AssignSKU(ctx context.Context, productID string) (string, error) {
	gid := productID
	if !strings.HasPrefix(productID, "gid://") {
		gid = "gid://shopify/Product/" + productID
	}

	next, err := c.NextSKU(ctx)
	if err != nil {
		return "", err
	}
	sku := strconv.Itoa(next)

	var product struct {
		Product *struct {
			Variants struct {
				Edges []struct {
					Node struct {
						ID string `json:"id"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"variants"`
		} `json:"product"`
	}
	if err := c.graphql(ctx, productVariantsQuery, map[string]any{"id": gid}, &product); err != nil {
		return "", fmt.Errorf("failed to load variants: %w", err)
	}
	if product.Product == nil {
		return "", &NotFoundError{Resource: "product", ID: productID}
	}
	if len(product.Product.Variants.Edges) == 0 {
		return "", fmt.Errorf("no variants found for product %s", productID)
	}

	variants := make([]map[string]any, 0, len(product.Product.Variants.Edges))
	for _, e := range product.Product.Variants.Edges {
		variants = append(variants, map[string]any{
			"id":            e.Node.ID,
			"inventoryItem": map[string]any{"sku": sku},
		})
	}

	var result struct {
		Update struct {
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	vars := map[string]any{"productId": gid, "variants": variants}
	if err := c.graphql(ctx, variantsBulkUpdateMutation, vars, &result); err != nil {
		return "", fmt.Errorf("failed to update variants: %w", err)
	}
	if len(result.Update.UserErrors) > 0 {
		gqlErr := &GraphQLError{}
		for _, ue := range result.Update.UserErrors {
			gqlErr.Messages = append(gqlErr.Messages, ue.Message)
		}
		return "", gqlErr
	}

	c.logger.Info("sku assigned",
		zap.String("product_id", productID),
		zap.String("sku", sku),
		zap.Int("variants", len(variants)),
	)
	return sku, nil
}
