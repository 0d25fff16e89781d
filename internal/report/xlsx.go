package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

const sheetName = "Orders"

const currencyFormat = "₹#,##0.00"

var columnWidths = []float64{20, 25, 30, 25, 15, 40, 15, 15}

// RenderXLSX writes rows to a styled workbook with the same summary and invoice as Render.
func RenderXLSX(rows []types.OrderRow, gstRate float64) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	showGrid := false
	if err := f.SetSheetView(sheetName, 0, &excelize.ViewOptions{ShowGridLines: &showGrid}); err != nil {
		return nil, fmt.Errorf("failed to set sheet view: %w", err)
	}

	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, err
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}
	_ = f.SetRowHeight(sheetName, 1, 30)
	if err := f.SetCellStyle(sheetName, "A1", "H1", styles.header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		rowNum := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		values := []any{r.Category, r.Model, r.SKU, r.CustomerName, r.OrderID, r.PreviewURL, r.Payment, r.COGS}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, err
		}
		_ = f.SetRowHeight(sheetName, rowNum, 20)

		first, _ := excelize.CoordinatesToCellName(1, rowNum)
		last, _ := excelize.CoordinatesToCellName(8, rowNum)
		url, _ := excelize.CoordinatesToCellName(6, rowNum)
		cogs, _ := excelize.CoordinatesToCellName(8, rowNum)
		if err := f.SetCellStyle(sheetName, first, last, styles.data); err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(sheetName, url, url, styles.dataLeft)
		_ = f.SetCellStyle(sheetName, cogs, cogs, styles.dataCurrency)
	}

	totals := ComputeTotals(rows, gstRate)
	w := &summaryWriter{f: f, styles: styles, row: len(rows) + 3}

	w.heading("ORDER SUMMARY")
	w.line("TOTAL ORDERS", totals.Orders, styles.valueBold)
	w.line("TOTAL ITEMS", totals.Items, styles.valueBold)
	w.row++
	for _, c := range totals.Categories {
		w.line(c.Category, c.Count, 0)
	}
	w.row++

	w.heading("INVOICE")
	w.line("Subtotal (COGS)", totals.Subtotal, styles.currency)
	w.line(fmt.Sprintf("GST (%g%%)", gstRate), totals.GST, styles.currency)
	w.line("GRAND TOTAL", totals.GrandTotal, styles.grandTotal)
	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	header       int
	data         int
	dataLeft     int
	dataCurrency int
	heading      int
	label        int
	valueBold    int
	currency     int
	grandTotal   int
}

type styleDef struct {
	dst   *int
	style *excelize.Style
}

func newStyles(f *excelize.File) (*sheetStyles, error) {
	numFmt := currencyFormat
	thinBottom := []excelize.Border{{Type: "bottom", Color: "EEEEEE", Style: 1}}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	s := &sheetStyles{}
	defs := []styleDef{
		{&s.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4F46E5"}},
			Alignment: center,
			Border:    []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
		}},
		{&s.data, &excelize.Style{Alignment: center, Border: thinBottom}},
		{&s.dataLeft, &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"}, Border: thinBottom}},
		{&s.dataCurrency, &excelize.Style{Alignment: center, Border: thinBottom, CustomNumFmt: &numFmt}},
		{&s.heading, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14, Color: "4F46E5"}}},
		{&s.label, &excelize.Style{Font: &excelize.Font{Bold: true, Color: "333333"}, Alignment: &excelize.Alignment{Horizontal: "right"}}},
		{&s.valueBold, &excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: &excelize.Alignment{Horizontal: "left"}}},
		{&s.currency, &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left"}, CustomNumFmt: &numFmt}},
		{&s.grandTotal, &excelize.Style{
			Font:         &excelize.Font{Bold: true, Size: 12, Color: "000000"},
			Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FEF3C7"}},
			Border:       []excelize.Border{{Type: "top", Color: "000000", Style: 1}, {Type: "bottom", Color: "000000", Style: 6}},
			CustomNumFmt: &numFmt,
		}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("failed to create style: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}

// summaryWriter lays out label/value pairs in columns B and C.
type summaryWriter struct {
	f      *excelize.File
	styles *sheetStyles
	row    int
	err    error
}

func (w *summaryWriter) heading(text string) {
	cell, _ := excelize.CoordinatesToCellName(2, w.row)
	w.set(cell, text, w.styles.heading)
	w.row += 2
}

func (w *summaryWriter) line(label string, value any, valueStyle int) {
	labelCell, _ := excelize.CoordinatesToCellName(2, w.row)
	valueCell, _ := excelize.CoordinatesToCellName(3, w.row)
	w.set(labelCell, label, w.styles.label)
	w.set(valueCell, value, valueStyle)
	w.row++
}

func (w *summaryWriter) set(cell string, value any, style int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(sheetName, cell, value); err != nil {
		w.err = err
		return
	}
	if style != 0 {
		w.err = w.f.SetCellStyle(sheetName, cell, cell, style)
	}
}
