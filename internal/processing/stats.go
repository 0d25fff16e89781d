package processing

import "github.com/jonathan/fulfillment-agent/internal/types"

// Stats summarizes a set of export rows.
type Stats struct {
	TotalOrders int     `json:"totalOrders"`
	TotalItems  int     `json:"totalItems"`
	Subtotal    float64 `json:"subtotal"`
	Revenue     float64 `json:"revenue"`
	GST         float64 `json:"gst"`
	Total       float64 `json:"total"`
}

// Summarize totals COGS and revenue; gstRate is a percentage applied to COGS.
func Summarize(rows []types.OrderRow, gstRate float64) Stats {
	stats := Stats{TotalItems: len(rows)}
	orders := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		stats.Subtotal += r.COGS
		stats.Revenue += r.Price
		orders[r.OrderID] = struct{}{}
	}
	stats.TotalOrders = len(orders)
	stats.GST = stats.Subtotal * gstRate / 100
	stats.Total = stats.Subtotal + stats.GST
	return stats
}

// UniqueOrderCount counts distinct order ids among rows.
func UniqueOrderCount(rows []types.OrderRow) int {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[r.OrderID] = struct{}{}
	}
	return len(seen)
}
