package carrier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// SearchResult is the outcome of FindOrderByExternalID.
type SearchResult struct {
	Found      bool   `json:"found"`
	ShipmentID int64  `json:"shipmentId,omitempty"`
	OrderID    int64  `json:"orderId,omitempty"`
	Status     string `json:"status,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

type orderListResponse struct {
	Data []struct {
		ID             flexInt64  `json:"id"`
		ChannelOrderID flexString `json:"channel_order_id"`
		Status         string     `json:"status"`
		StatusCode     flexInt64  `json:"status_code"`
		Shipments      []struct {
			ID flexInt64 `json:"id"`
		} `json:"shipments"`
	} `json:"data"`
	Meta struct {
		Pagination struct {
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

// FindOrderByExternalID scans the carrier's order list for an exact channel order id match.
//
// The carrier offers no indexed lookup, so this pages through at most MaxSearchPages pages.
// Each page is one rate-limited request. A miss is reported as Found=false with a nil error.
func (c *Client) FindOrderByExternalID(ctx context.Context, externalID string) (*SearchResult, error) {
	for page := 1; page <= c.maxPages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(c.pageSize))
		query.Set("search", externalID)

		var resp orderListResponse
		if err := c.do(ctx, http.MethodGet, "/v1/external/orders?"+query.Encode(), nil, &resp); err != nil {
			return nil, err
		}

		for _, o := range resp.Data {
			if string(o.ChannelOrderID) != externalID {
				continue
			}
			result := &SearchResult{
				Found:      true,
				OrderID:    int64(o.ID),
				Status:     o.Status,
				StatusCode: int(o.StatusCode),
			}
			if len(o.Shipments) > 0 {
				result.ShipmentID = int64(o.Shipments[0].ID)
			}
			c.logger.Debug("order found",
				zap.String("external_id", externalID),
				zap.Int64("shipment_id", result.ShipmentID),
				zap.Int("page", page),
			)
			return result, nil
		}

		if len(resp.Data) < c.pageSize {
			break
		}
		if total := resp.Meta.Pagination.TotalPages; total > 0 && page >= total {
			break
		}
	}

	return &SearchResult{Found: false}, nil
}
