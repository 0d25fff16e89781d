// Package report renders export rows and job outcomes as CSV and Excel documents and keeps
// generated report files on disk for download.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// bom makes Excel open the CSV as UTF-8.
const bom = "\uFEFF"

const divider = "════════════════════════"

// Header is the column order of an export CSV.
var Header = []string{"Category", "Model", "SKU", "Customer Name", "Order ID", "Preview Product URL", "Payment", "COGS"}

// CategoryCount is the number of rows in a category.
type CategoryCount struct {
	Category string
	Count    int
}

// Totals is the invoice block of a report.
type Totals struct {
	Items      int
	Orders     int
	Categories []CategoryCount
	Subtotal   float64
	GSTRate    float64
	GST        float64
	GrandTotal float64
}

// ComputeTotals counts categories (most frequent first, ties by name) and prices the batch.
func ComputeTotals(rows []types.OrderRow, gstRate float64) Totals {
	t := Totals{Items: len(rows), GSTRate: gstRate}

	counts := make(map[string]int)
	orders := make(map[string]struct{})
	for _, r := range rows {
		counts[r.Category]++
		orders[r.OrderID] = struct{}{}
		t.Subtotal += r.COGS
	}
	t.Orders = len(orders)

	for category, n := range counts {
		t.Categories = append(t.Categories, CategoryCount{Category: category, Count: n})
	}
	sort.Slice(t.Categories, func(i, j int) bool {
		if t.Categories[i].Count != t.Categories[j].Count {
			return t.Categories[i].Count > t.Categories[j].Count
		}
		return t.Categories[i].Category < t.Categories[j].Category
	})

	t.GST = t.Subtotal * gstRate / 100
	t.GrandTotal = t.Subtotal + t.GST
	return t
}

// Render writes rows followed by an order summary and an invoice.
func Render(rows []types.OrderRow, gstRate float64, generatedAt time.Time) ([]byte, error) {
	totals := ComputeTotals(rows, gstRate)

	records := [][]string{Header}
	for _, r := range rows {
		cogs := ""
		if r.COGS > 0 {
			cogs = money(r.COGS)
		}
		records = append(records, []string{r.Category, r.Model, r.SKU, r.CustomerName, r.OrderID, r.PreviewURL, r.Payment, cogs})
	}

	records = append(records,
		[]string{},
		[]string{divider, "ORDER SUMMARY", divider},
		[]string{},
		[]string{"VARIANT CATEGORY", "QUANTITY"},
	)
	for _, c := range totals.Categories {
		records = append(records, []string{c.Category, strconv.Itoa(c.Count)})
	}
	records = append(records,
		[]string{},
		[]string{"TOTAL ITEMS", strconv.Itoa(totals.Items)},
		[]string{"TOTAL ORDERS", strconv.Itoa(totals.Orders)},
		[]string{},
		[]string{divider, "INVOICE", divider},
		[]string{},
		[]string{"Subtotal (COGS)", "₹" + money(totals.Subtotal)},
		[]string{fmt.Sprintf("GST (%s%%)", strconv.FormatFloat(gstRate, 'f', -1, 64)), "₹" + money(totals.GST)},
		[]string{"GRAND TOTAL", "₹" + money(totals.GrandTotal)},
		[]string{},
		[]string{"Generated On", generatedAt.Format("02/01/2006, 15:04:05")},
	)

	return writeCSV(records)
}

// RiskEntry is one line of a high-risk report.
type RiskEntry struct {
	OrderID  string `json:"orderId"`
	Customer string `json:"customer"`
	Risk     string `json:"risk"`
	Reason   string `json:"reason"`
}

// FailureEntry is one line of a failure report.
type FailureEntry struct {
	OrderID  string `json:"orderId"`
	Customer string `json:"customer,omitempty"`
	Error    string `json:"error"`
}

// RenderHighRisk writes the high-risk report.
func RenderHighRisk(entries []RiskEntry) ([]byte, error) {
	records := [][]string{{"Order ID", "Customer", "Risk", "Reason"}}
	for _, e := range entries {
		records = append(records, []string{e.OrderID, e.Customer, e.Risk, e.Reason})
	}
	return writeCSV(records)
}

// RenderFailures writes the failure report.
func RenderFailures(entries []FailureEntry) ([]byte, error) {
	records := [][]string{{"Order ID", "Customer", "Error"}}
	for _, e := range entries {
		records = append(records, []string{e.OrderID, e.Customer, e.Error})
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(bom)

	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
