// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/fulfillment-agent/internal/jobs"
	"github.com/jonathan/fulfillment-agent/internal/processing"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxCategoriesToShow caps the category list in export summaries
	maxCategoriesToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJob outputs a human-readable summary of a label job.
func (p *Printer) PrintJob(job *jobs.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Job:       %s\n", job.ID)
	fmt.Fprintf(&sb, "Status:    %s\n", job.Status)
	if job.BatchID != "" {
		fmt.Fprintf(&sb, "Batch:     %s\n", job.BatchID)
	}
	if job.OrderCount != nil {
		fmt.Fprintf(&sb, "Orders:    %d", *job.OrderCount)
		if job.LineItemCount != nil {
			fmt.Fprintf(&sb, " (%d line items)", *job.LineItemCount)
		}
		sb.WriteString("\n")
	}

	if job.EstimatedCost != nil {
		sb.WriteString("\nWallet:\n")
		fmt.Fprintf(&sb, "  Estimated cost:  ₹%.2f\n", *job.EstimatedCost)
		if job.CurrentBalance != nil {
			fmt.Fprintf(&sb, "  Balance:         ₹%.2f\n", *job.CurrentBalance)
		} else {
			sb.WriteString("  Balance:         unknown\n")
		}
		if job.Shortfall != nil {
			fmt.Fprintf(&sb, "  Shortfall:       ₹%.2f\n", *job.Shortfall)
		}
	}

	counts := []struct {
		label string
		value *int
	}{
		{"Shipped", job.SuccessCount},
		{"High risk", job.HighRiskCount},
		{"Failed", job.FailedCount},
	}
	var wroteCounts bool
	for _, c := range counts {
		if c.value == nil {
			continue
		}
		if !wroteCounts {
			sb.WriteString("\nResults:\n")
			wroteCounts = true
		}
		fmt.Fprintf(&sb, "  %-10s %d\n", c.label+":", *c.value)
	}

	links := []struct {
		label string
		url   *string
	}{
		{"Labels", job.LabelURL},
		{"High risk", job.HighRiskURL},
		{"Failures", job.FailedReportURL},
	}
	var wroteLinks bool
	for _, l := range links {
		if l.url == nil || *l.url == "" {
			continue
		}
		if !wroteLinks {
			sb.WriteString("\nFiles:\n")
			wroteLinks = true
		}
		fmt.Fprintf(&sb, "  %-10s %s\n", l.label+":", *l.url)
	}

	if job.Message != "" {
		fmt.Fprintf(&sb, "\n%s\n", job.Message)
	}
	if job.Error != "" {
		fmt.Fprintf(&sb, "\nError: %s\n", job.Error)
	}

	p.printBox("LABEL JOB", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExport outputs the totals of an export and where it was written.
func (p *Printer) PrintExport(path string, stats processing.Stats, categories map[string]int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "File:      %s\n", path)
	fmt.Fprintf(&sb, "Orders:    %d\n", stats.TotalOrders)
	fmt.Fprintf(&sb, "Items:     %d\n", stats.TotalItems)
	fmt.Fprintf(&sb, "COGS:      ₹%.2f\n", stats.Subtotal)
	fmt.Fprintf(&sb, "GST:       ₹%.2f\n", stats.GST)
	fmt.Fprintf(&sb, "Total:     ₹%.2f\n", stats.Total)

	if len(categories) > 0 {
		sb.WriteString("\nCategories:\n")
		names := make([]string, 0, len(categories))
		for name := range categories {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if categories[names[i]] != categories[names[j]] {
				return categories[names[i]] > categories[names[j]]
			}
			return names[i] < names[j]
		})

		count := min(len(names), maxCategoriesToShow)
		for _, name := range names[:count] {
			fmt.Fprintf(&sb, "  • %s (%d)\n", name, categories[name])
		}
		if len(names) > maxCategoriesToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(names)-maxCategoriesToShow)
		}
	}

	p.printBox("EXPORT", strings.TrimSuffix(sb.String(), "\n"))
}
