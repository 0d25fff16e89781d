package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/observability"
	"github.com/jonathan/fulfillment-agent/internal/processing"
	"github.com/jonathan/fulfillment-agent/internal/report"
	"github.com/jonathan/fulfillment-agent/internal/storefront"
	"github.com/jonathan/fulfillment-agent/internal/types"
)

var (
	exportDays        int
	exportStart       string
	exportEnd         string
	exportFormat      string
	exportOutDir      string
	exportSkipHistory bool
	exportVerbose     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch unfulfilled orders and write the supplier export",
	Long: `Fetches unfulfilled orders from Shopify, expands them into export rows, records the rows
as a new batch (the input of the next label job) and writes the CSV or XLSX file.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Lookback window in days (defaults to DETAILS_LOOKBACK_DAYS)")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "Start date YYYY-MM-DD (overrides --days)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "End date YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", ".", "Directory to write the export to")
	exportCmd.Flags().BoolVar(&exportSkipHistory, "skip-history", false, "Do not record the rows as a batch")
	exportCmd.Flags().BoolVarP(&exportVerbose, "verbose", "v", false, "Print a summary box with category counts")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	if exportFormat != "csv" && exportFormat != "xlsx" {
		return fmt.Errorf("unsupported format %q (want csv or xlsx)", exportFormat)
	}

	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.storefront == nil {
		return errNoStorefront
	}

	opts := storefront.FetchOptions{DaysLookback: a.cfg.DetailsLookbackDays, StartDate: exportStart, EndDate: exportEnd}
	if exportDays > 0 {
		opts.DaysLookback = exportDays
	}
	orders, err := a.storefront.GetUnfulfilledOrders(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to fetch orders: %w", err)
	}

	rows := processing.ProcessOrders(orders, processing.Options{StoreDomain: a.cfg.ShopifyStoreDomain, Logger: a.logger})
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No unfulfilled orders found.")
		return nil
	}

	path, err := writeExport(cmd, a.history, rows, a.cfg.GSTRate, time.Now())
	if err != nil {
		return err
	}

	stats := processing.Summarize(rows, a.cfg.GSTRate)
	a.logger.Info("export written", zap.String("path", path), zap.Int("orders", stats.TotalOrders), zap.Int("items", stats.TotalItems))
	if exportVerbose {
		categories := make(map[string]int)
		for _, r := range rows {
			categories[r.Category]++
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintExport(path, stats, categories)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d orders, %d items, total %.2f)\n", path, stats.TotalOrders, stats.TotalItems, stats.Total)
	return nil
}

// batchSaver records export rows.
type batchSaver interface {
	Save(ctx context.Context, batchType string, rows []types.OrderRow) (*types.Batch, error)
}

// writeExport records rows as a batch (unless skipped) and writes the rendered file.
func writeExport(cmd *cobra.Command, batches batchSaver, rows []types.OrderRow, gstRate float64, now time.Time) (string, error) {
	batchID := "000"
	if !exportSkipHistory {
		batch, err := batches.Save(cmd.Context(), types.BatchTypeDownload, rows)
		if err != nil {
			return "", fmt.Errorf("failed to save batch: %w", err)
		}
		batchID = batch.ID
	}

	var (
		data []byte
		err  error
	)
	if exportFormat == "xlsx" {
		data, err = report.RenderXLSX(rows, gstRate)
	} else {
		data, err = report.Render(rows, gstRate, now)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render export: %w", err)
	}

	if err := os.MkdirAll(exportOutDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(exportOutDir, report.ExportFilename(rows, batchID, now, exportFormat))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
