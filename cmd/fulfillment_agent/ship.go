package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/fulfillment-agent/internal/jobs"
	"github.com/jonathan/fulfillment-agent/internal/observability"
)

var (
	shipTimeout time.Duration
	shipVerbose bool
)

var shipCmd = &cobra.Command{
	Use:   "ship",
	Short: "Run one label job for the latest batch and print the result",
	Long: `Runs the label job synchronously against the latest exported batch: risk screening, wallet
check, shipment lookup, courier assignment and label generation. Prints the final job record as
JSON and exits non-zero when the job fails or needs a wallet recharge.`,
	RunE: runShip,
}

func init() {
	shipCmd.Flags().DurationVar(&shipTimeout, "timeout", time.Hour, "Maximum time to wait for the job")
	shipCmd.Flags().BoolVarP(&shipVerbose, "verbose", "v", false, "Print a readable summary after the JSON record")
	rootCmd.AddCommand(shipCmd)
}

func runShip(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), shipTimeout)
	defer cancel()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	manager := a.newManager(ctx)
	job, err := manager.Submit(ctx)
	if err != nil {
		return err
	}
	if err := manager.Wait(ctx); err != nil {
		return fmt.Errorf("job %s did not finish: %w", job.ID, err)
	}

	// The job context may be spent; read the record with a fresh one.
	readCtx, cancelRead := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancelRead()
	final, err := manager.Get(readCtx, job.ID)
	if err != nil {
		return err
	}
	return printJob(cmd, final)
}

// printJob writes the record and maps unsuccessful statuses to an error.
func printJob(cmd *cobra.Command, job *jobs.Job) error {
	out, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if shipVerbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintJob(job)
	}

	switch job.Status {
	case jobs.StatusFailed:
		return fmt.Errorf("job failed: %s", job.Error)
	case jobs.StatusRequiresMoney:
		return fmt.Errorf("wallet recharge required: %s", job.Message)
	}
	return nil
}
