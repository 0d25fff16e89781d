package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/fulfillment-agent/internal/carrier"
	"github.com/jonathan/fulfillment-agent/internal/history"
	"github.com/jonathan/fulfillment-agent/internal/report"
	"github.com/jonathan/fulfillment-agent/internal/risk"
	"github.com/jonathan/fulfillment-agent/internal/types"
)

// Messages recorded on job records and failure reports.
const (
	MsgNoHistory        = "No CSV history found."
	MsgNoSafeOrders     = "No safe orders to process."
	MsgNoCarrierOrders  = "No valid Shiprocket orders found."
	MsgNoAssignments    = "No shipments could be assigned a courier."
	MsgRequiresMoney    = "Insufficient wallet balance. Recharge and retry."
	MsgNoID             = "No ID found"
	MsgNotFound         = "Not found in Shiprocket (Sync Issue)"
	MsgNoShipment       = "Shipment Creation Failed"
	MsgCreateDuplicate  = "Create Failed: Order already exists in Shiprocket"
	MsgShopifyHigh      = "Shopify marked HIGH"
	MsgWalletFailed     = "Wallet Check Failed"
	RiskTagShopify      = "HIGH (Shopify)"
	RiskTagValidator    = "HIGH (Validator)"
	RiskTagDuplicate    = "HIGH (Duplicate)"
	msgInternalError    = "Internal error"
	msgPhaseTimedOut    = "Timed out while "
	defaultProgressStep = 5
	defaultSafetyMargin = 0.10
)

// OrderSource fetches canonical storefront orders.
type OrderSource interface {
	GetOrder(ctx context.Context, id string) (*types.CanonicalOrder, error)
}

// Carrier is the subset of the carrier client used by jobs.
type Carrier interface {
	GetWalletBalance(ctx context.Context) (*float64, error)
	FindOrderByExternalID(ctx context.Context, externalID string) (*carrier.SearchResult, error)
	CreateOrder(ctx context.Context, order *types.CanonicalOrder) carrier.OrderResult
	UpdateOrder(ctx context.Context, order *types.CanonicalOrder) carrier.OrderResult
	BulkAssignCouriers(ctx context.Context, assignments []types.ShipmentAssignment) carrier.BulkAssignResult
	SchedulePickup(ctx context.Context, shipmentID int64) carrier.PickupResult
	BulkGenerateLabel(ctx context.Context, ids []int64) carrier.LabelResult
}

// ReportSink stores generated report files and returns their download URL.
type ReportSink interface {
	Save(name string, data []byte) (string, error)
}

// RunnerConfig tunes a Runner. SafetyMargin is the fraction added to the per-order
// estimate; nil takes the default and an explicit zero disables the margin.
//
// RefreshOrders re-posts every found carrier order so its package takes the default
// dimensions, using the returned shipment when there is one. CreateMissing creates an ad-hoc
// carrier order for storefront orders no lookup key matched.
type RunnerConfig struct {
	FallbackCost      float64
	SafetyMargin      *float64
	LookupConcurrency int
	SchedulePickup    bool
	RefreshOrders     bool
	CreateMissing     bool
	CallTimeout       time.Duration
	PhaseTimeout      time.Duration
	ProgressEvery     int
}

// DefaultRunnerConfig returns the production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		FallbackCost:      95,
		SafetyMargin:      ptr(defaultSafetyMargin),
		LookupConcurrency: 1,
		CallTimeout:       30 * time.Second,
		PhaseTimeout:      15 * time.Minute,
		ProgressEvery:     defaultProgressStep,
	}
}

// JobError is a failure whose message is shown to the operator verbatim.
type JobError struct {
	Message string
	Cause   error
}

func (e *JobError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *JobError) Unwrap() error {
	return e.Cause
}

// Runner executes shipping jobs.
type Runner struct {
	jobs    Store
	batches history.Store
	orders  OrderSource
	carrier Carrier
	reports ReportSink
	cfg     RunnerConfig
	logger  *zap.Logger
}

// NewRunner wires a Runner. Zero config fields take their defaults.
func NewRunner(jobs Store, batches history.Store, orders OrderSource, c Carrier, reports ReportSink, cfg RunnerConfig, logger *zap.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.FallbackCost <= 0 {
		cfg.FallbackCost = def.FallbackCost
	}
	if cfg.SafetyMargin == nil || *cfg.SafetyMargin < 0 {
		cfg.SafetyMargin = def.SafetyMargin
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.PhaseTimeout <= 0 {
		cfg.PhaseTimeout = def.PhaseTimeout
	}
	if cfg.LookupConcurrency < 1 {
		cfg.LookupConcurrency = def.LookupConcurrency
	}
	if cfg.ProgressEvery < 1 {
		cfg.ProgressEvery = def.ProgressEvery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		jobs:    jobs,
		batches: batches,
		orders:  orders,
		carrier: c,
		reports: reports,
		cfg:     cfg,
		logger:  logger,
	}
}

// runState accumulates the buckets of one job run.
type runState struct {
	jobID  string
	logger *zap.Logger

	mu       sync.Mutex
	highRisk []report.RiskEntry
	failed   []report.FailureEntry

	byShipment map[int64]*types.CanonicalOrder
	shipped    []int64

	progressMu   sync.Mutex
	lastProgress int64
}

func (s *runState) flag(order *types.CanonicalOrder, tag, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highRisk = append(s.highRisk, report.RiskEntry{
		OrderID:  order.Name,
		Customer: order.CustomerName(),
		Risk:     tag,
		Reason:   reason,
	})
}

func (s *runState) failOrder(order *types.CanonicalOrder, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, report.FailureEntry{
		OrderID:  order.Name,
		Customer: order.CustomerName(),
		Error:    msg,
	})
}

func (s *runState) failRow(row types.OrderRow, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := row.OrderID
	if id == "" {
		id = row.ID
	}
	s.failed = append(s.failed, report.FailureEntry{OrderID: id, Customer: row.CustomerName, Error: msg})
}

// Run executes a job to a terminal status. It never returns an error: every outcome is
// recorded on the job.
func (r *Runner) Run(ctx context.Context, jobID string) {
	st := &runState{
		jobID:      jobID,
		logger:     r.logger.With(zap.String("job_id", jobID)),
		byShipment: make(map[int64]*types.CanonicalOrder),
	}

	defer func() {
		if rec := recover(); rec != nil {
			st.logger.Error("job panicked", zap.Any("panic", rec), zap.Stack("stack"))
			r.fail(ctx, st, &JobError{Message: msgInternalError})
		}
	}()

	start := time.Now()
	if err := r.execute(ctx, st); err != nil {
		st.logger.Error("job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		r.fail(ctx, st, err)
		return
	}
	st.logger.Info("job finished",
		zap.Int("high_risk", len(st.highRisk)),
		zap.Int("failed", len(st.failed)),
		zap.Int("shipped", len(st.shipped)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (r *Runner) execute(ctx context.Context, st *runState) error {
	batch, err := r.batches.Latest(ctx)
	if err != nil {
		return fmt.Errorf("failed to load latest batch: %w", err)
	}
	if batch == nil || len(batch.Rows) == 0 {
		return &JobError{Message: MsgNoHistory}
	}

	if err := r.update(ctx, st, Patch{
		Status:        StatusFetchingDetails,
		BatchID:       batch.ID,
		LineItemCount: ptr(len(batch.Rows)),
		Progress:      fmt.Sprintf("Reviewing Order 0/%d", len(batch.Rows)),
	}); err != nil {
		return err
	}

	safe, err := r.review(ctx, st, batch.Rows)
	if err != nil {
		return err
	}
	if len(safe) == 0 {
		return r.complete(ctx, st, nil, MsgNoSafeOrders)
	}

	halted, err := r.checkWallet(ctx, st, safe)
	if err != nil || halted {
		return err
	}

	assignments, err := r.identify(ctx, st, safe)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return r.complete(ctx, st, nil, MsgNoCarrierOrders)
	}

	shipped, err := r.assign(ctx, st, assignments)
	if err != nil {
		return err
	}
	if len(shipped) == 0 {
		return r.complete(ctx, st, nil, MsgNoAssignments)
	}

	labelURL, err := r.label(ctx, st, shipped)
	if err != nil {
		return err
	}
	return r.complete(ctx, st, labelURL, "")
}

// review resolves and fetches every order in the batch, then applies the risk checks.
// It returns the orders safe to ship, one per storefront order.
func (r *Runner) review(ctx context.Context, st *runState, rows []types.OrderRow) ([]*types.CanonicalOrder, error) {
	phaseCtx, cancel := r.phaseContext(ctx)
	defer cancel()

	seen := make(map[string]bool)
	var candidates []*types.CanonicalOrder
	for i, row := range rows {
		if (i+1)%r.cfg.ProgressEvery == 0 {
			r.progress(phaseCtx, st, fmt.Sprintf("Reviewing Order %d/%d", i+1, len(rows)))
		}

		id := ResolveOrderID(row)
		if id == "" {
			st.failRow(row, MsgNoID)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		order, err := r.fetchOrder(phaseCtx, id)
		if err != nil {
			if phaseCtx.Err() != nil {
				return nil, &JobError{Message: msgPhaseTimedOut + "fetching order details", Cause: err}
			}
			st.logger.Warn("order fetch failed", zap.String("order_id", id), zap.Error(err))
			st.failRow(row, "Fetch Failed: "+err.Error())
			continue
		}
		if order.RiskLevel == types.RiskHigh {
			st.flag(order, RiskTagShopify, MsgShopifyHigh)
			continue
		}
		candidates = append(candidates, order)
	}

	var valid []*types.CanonicalOrder
	for _, order := range candidates {
		if v := risk.ValidateAddress(order); !v.Valid {
			st.flag(order, RiskTagValidator, v.Reason)
			continue
		}
		if v := risk.ValidatePhone(order.ContactPhone()); !v.Valid {
			st.flag(order, RiskTagValidator, v.Reason)
			continue
		}
		valid = append(valid, order)
	}

	duplicates := risk.FindDuplicates(valid)
	safe := make([]*types.CanonicalOrder, 0, len(valid))
	for _, order := range valid {
		if reason, ok := duplicates[order.ID]; ok {
			st.flag(order, RiskTagDuplicate, reason)
			continue
		}
		safe = append(safe, order)
	}

	st.logger.Info("orders reviewed",
		zap.Int("rows", len(rows)),
		zap.Int("safe", len(safe)),
		zap.Int("high_risk", len(st.highRisk)),
	)
	return safe, nil
}

func (r *Runner) fetchOrder(ctx context.Context, id string) (*types.CanonicalOrder, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	return r.orders.GetOrder(callCtx, id)
}

// checkWallet compares the estimated shipping spend with the carrier wallet.
// halted is true when the job stopped in REQUIRES_MONEY.
func (r *Runner) checkWallet(ctx context.Context, st *runState, safe []*types.CanonicalOrder) (halted bool, err error) {
	avg := r.cfg.FallbackCost
	if batches, err := r.batches.List(ctx); err != nil {
		st.logger.Warn("failed to load history for cost estimate", zap.Error(err))
	} else if a, ok := history.AverageShippingCost(batches); ok {
		avg = a
	}

	perOrder := EstimatePerOrder(avg, *r.cfg.SafetyMargin)
	total := perOrder * float64(len(safe))

	if err := r.update(ctx, st, Patch{
		Status:          StatusCheckingWallet,
		Progress:        fmt.Sprintf("Checking wallet for %d orders", len(safe)),
		OrderCount:      ptr(len(safe)),
		EstimatedCost:   ptr(total),
		AvgCostPerOrder: ptr(perOrder),
	}); err != nil {
		return false, err
	}

	// An unknown balance comes back as nil without an error; any error is fatal.
	callCtx, cancel := r.callContext(ctx)
	balance, err := r.carrier.GetWalletBalance(callCtx)
	cancel()
	if err != nil {
		if carrier.IsAuthenticationError(err) {
			return false, &JobError{Message: carrier.Message(err), Cause: err}
		}
		return false, &JobError{Message: MsgWalletFailed + ": " + carrier.Message(err), Cause: err}
	}

	if balance != nil {
		if err := r.update(ctx, st, Patch{CurrentBalance: balance}); err != nil {
			return false, err
		}
	}

	if balance == nil || *balance >= total {
		return false, nil
	}

	patch := r.reportPatch(st)
	patch.Status = StatusRequiresMoney
	patch.Shortfall = ptr(Shortfall(total, *balance))
	patch.Message = MsgRequiresMoney
	st.logger.Info("wallet balance too low",
		zap.Float64("balance", *balance),
		zap.Float64("estimated", total),
	)
	return true, r.update(ctx, st, patch)
}

type lookupOutcome struct {
	assignment types.ShipmentAssignment
	failure    string
}

// identify finds the carrier shipment of every safe order. Results keep the input order
// regardless of LookupConcurrency.
func (r *Runner) identify(ctx context.Context, st *runState, safe []*types.CanonicalOrder) ([]types.ShipmentAssignment, error) {
	if err := r.update(ctx, st, Patch{
		Status:   StatusProcessing,
		Progress: fmt.Sprintf("Identifying Orders 0/%d", len(safe)),
	}); err != nil {
		return nil, err
	}

	phaseCtx, cancel := r.phaseContext(ctx)
	defer cancel()

	outcomes := make([]lookupOutcome, len(safe))
	done := atomic.NewInt64(0)

	var g errgroup.Group
	g.SetLimit(r.cfg.LookupConcurrency)
	for i, order := range safe {
		g.Go(func() error {
			outcomes[i] = r.lookup(phaseCtx, order)
			if n := done.Inc(); n%int64(r.cfg.ProgressEvery) == 0 {
				r.progressAt(phaseCtx, st, n, fmt.Sprintf("Identifying Orders %d/%d", n, len(safe)))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := phaseCtx.Err(); err != nil {
		return nil, &JobError{Message: msgPhaseTimedOut + "identifying orders", Cause: err}
	}

	var assignments []types.ShipmentAssignment
	for i, out := range outcomes {
		if out.failure != "" {
			st.failOrder(safe[i], out.failure)
			continue
		}
		st.byShipment[out.assignment.ShipmentID] = safe[i]
		assignments = append(assignments, out.assignment)
	}
	return assignments, nil
}

// lookup tries the order name without and with '#', then the numeric storefront id.
func (r *Runner) lookup(ctx context.Context, order *types.CanonicalOrder) lookupOutcome {
	for _, ext := range LookupKeys(order) {
		callCtx, cancel := r.callContext(ctx)
		res, err := r.carrier.FindOrderByExternalID(callCtx, ext)
		cancel()
		if err != nil {
			return lookupOutcome{failure: "Lookup Failed: " + carrier.Message(err)}
		}
		if res == nil || !res.Found {
			continue
		}

		shipmentID := res.ShipmentID
		if r.cfg.RefreshOrders {
			if refreshed := r.saveOrder(ctx, order, r.carrier.UpdateOrder); refreshed.Success && refreshed.ShipmentID != 0 {
				shipmentID = refreshed.ShipmentID
			} else if !refreshed.Success {
				r.logger.Warn("carrier order refresh failed, keeping original shipment",
					zap.String("order", order.Name),
					zap.String("error", refreshed.Error),
				)
			}
		}
		if shipmentID == 0 {
			return lookupOutcome{failure: MsgNoShipment}
		}
		return lookupOutcome{assignment: types.ShipmentAssignment{
			ShipmentID: shipmentID,
			OrderID:    res.OrderID,
			Order:      order,
		}}
	}

	if !r.cfg.CreateMissing {
		return lookupOutcome{failure: MsgNotFound}
	}
	created := r.saveOrder(ctx, order, r.carrier.CreateOrder)
	switch {
	case created.Duplicate:
		return lookupOutcome{failure: MsgCreateDuplicate + " (" + created.Error + ")"}
	case !created.Success:
		return lookupOutcome{failure: "Create Failed: " + created.Error}
	case created.ShipmentID == 0:
		return lookupOutcome{failure: MsgNoShipment}
	}
	return lookupOutcome{assignment: types.ShipmentAssignment{
		ShipmentID: created.ShipmentID,
		OrderID:    created.OrderID,
		Order:      order,
	}}
}

func (r *Runner) saveOrder(ctx context.Context, order *types.CanonicalOrder, save func(context.Context, *types.CanonicalOrder) carrier.OrderResult) carrier.OrderResult {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	return save(callCtx, order)
}

// assign requests couriers serially and returns the shipments that received an AWB.
func (r *Runner) assign(ctx context.Context, st *runState, assignments []types.ShipmentAssignment) ([]int64, error) {
	phaseCtx, cancel := r.phaseContext(ctx)
	defer cancel()

	r.progress(ctx, st, fmt.Sprintf("Assigning couriers to %d shipments", len(assignments)))
	res := r.carrier.BulkAssignCouriers(phaseCtx, assignments)
	if err := phaseCtx.Err(); err != nil {
		return nil, &JobError{Message: msgPhaseTimedOut + "assigning couriers", Cause: err}
	}

	for _, f := range res.Failed {
		st.failOrder(f.Assignment.Order, AssignFailureMessage(f.Kind, f.Message))
	}

	if r.cfg.SchedulePickup {
		for _, id := range res.Successful {
			callCtx, cancel := r.callContext(phaseCtx)
			pickup := r.carrier.SchedulePickup(callCtx, id)
			cancel()
			if pickup.Success {
				st.logger.Info("pickup scheduled", zap.Int64("shipment_id", id), zap.String("date", pickup.Date))
			} else {
				st.logger.Warn("pickup not scheduled", zap.Int64("shipment_id", id), zap.String("error", pickup.Error))
			}
		}
	}
	return res.Successful, nil
}

// label requests one label document for every assigned shipment. On failure every
// shipment is recorded as failed and the URL is nil.
func (r *Runner) label(ctx context.Context, st *runState, shipped []int64) (*string, error) {
	if err := r.update(ctx, st, Patch{
		Status:   StatusGeneratingLabel,
		Progress: fmt.Sprintf("Generating labels for %d shipments", len(shipped)),
	}); err != nil {
		return nil, err
	}

	callCtx, cancel := r.callContext(ctx)
	res := r.carrier.BulkGenerateLabel(callCtx, shipped)
	cancel()

	if res.URL == "" {
		msg := "Label Gen Failed: " + res.Error
		for _, id := range shipped {
			if order := st.byShipment[id]; order != nil {
				st.failOrder(order, msg)
			}
		}
		return nil, nil
	}
	st.shipped = shipped
	return &res.URL, nil
}

func (r *Runner) complete(ctx context.Context, st *runState, labelURL *string, message string) error {
	patch := r.reportPatch(st)
	patch.Status = StatusCompleted
	patch.LabelURL = labelURL
	patch.Message = message
	patch.Progress = "Done"
	if labelURL != nil {
		patch.SuccessCount = ptr(len(st.shipped))
	} else {
		patch.SuccessCount = ptr(0)
	}
	return r.update(ctx, st, patch)
}

// fail records a terminal failure. It runs on a fresh context so a cancelled job can
// still be marked.
func (r *Runner) fail(ctx context.Context, st *runState, cause error) {
	msg := cause.Error()
	var jobErr *JobError
	if errors.As(cause, &jobErr) {
		msg = jobErr.Message
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	patch := r.reportPatch(st)
	patch.Status = StatusFailed
	patch.Error = msg
	if _, err := r.jobs.Update(writeCtx, st.jobID, patch); err != nil {
		st.logger.Error("failed to record job failure", zap.Error(err))
	}
}

// reportPatch writes the high-risk and failure reports and returns the fields describing them.
func (r *Runner) reportPatch(st *runState) Patch {
	st.mu.Lock()
	highRisk := append([]report.RiskEntry(nil), st.highRisk...)
	failed := append([]report.FailureEntry(nil), st.failed...)
	st.mu.Unlock()

	patch := Patch{
		HighRiskCount: ptr(len(highRisk)),
		FailedCount:   ptr(len(failed)),
	}
	if r.reports == nil {
		return patch
	}

	if len(highRisk) > 0 {
		if data, err := report.RenderHighRisk(highRisk); err != nil {
			st.logger.Error("failed to render high-risk report", zap.Error(err))
		} else if url, err := r.reports.Save(report.HighRiskFilename(st.jobID), data); err != nil {
			st.logger.Error("failed to save high-risk report", zap.Error(err))
		} else {
			patch.HighRiskURL = &url
		}
	}
	if len(failed) > 0 {
		if data, err := report.RenderFailures(failed); err != nil {
			st.logger.Error("failed to render failure report", zap.Error(err))
		} else if url, err := r.reports.Save(report.FailedFilename(st.jobID), data); err != nil {
			st.logger.Error("failed to save failure report", zap.Error(err))
		} else {
			patch.FailedReportURL = &url
		}
	}
	return patch
}

func (r *Runner) update(ctx context.Context, st *runState, patch Patch) error {
	if _, err := r.jobs.Update(ctx, st.jobID, patch); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// progress records a progress message. Failures are logged only.
func (r *Runner) progress(ctx context.Context, st *runState, msg string) {
	if _, err := r.jobs.Update(ctx, st.jobID, Patch{Progress: msg}); err != nil {
		st.logger.Warn("failed to record progress", zap.Error(err))
	}
}

// progressAt records progress from concurrent workers without letting the counter go backwards.
func (r *Runner) progressAt(ctx context.Context, st *runState, n int64, msg string) {
	st.progressMu.Lock()
	defer st.progressMu.Unlock()
	if n <= st.lastProgress {
		return
	}
	st.lastProgress = n
	r.progress(ctx, st, msg)
}

func (r *Runner) phaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.PhaseTimeout)
}

func (r *Runner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.CallTimeout)
}

// ResolveOrderID picks the storefront id of a row: ID, then OrderID, then the last segment
// of OrderLink. GIDs are reduced to their numeric part.
func ResolveOrderID(row types.OrderRow) string {
	for _, candidate := range []string{row.ID, row.OrderID, types.LastPathSegment(row.OrderLink)} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if strings.HasPrefix(candidate, "gid://") {
			candidate = types.LastPathSegment(candidate)
		}
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// LookupKeys lists the external ids tried against the carrier, without duplicates.
func LookupKeys(order *types.CanonicalOrder) []string {
	candidates := []string{
		strings.Replace(order.Name, "#", "", 1),
		order.Name,
		order.NumericID(),
	}
	keys := make([]string, 0, len(candidates))
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		keys = append(keys, c)
	}
	return keys
}

// AssignFailureMessage renders the failure-report text for a failed courier assignment.
func AssignFailureMessage(kind carrier.FailureKind, msg string) string {
	switch kind {
	case carrier.FailureDimensions:
		return fmt.Sprintf("Assign Failed: Missing package dimensions/weight, update product dimensions in Shiprocket (%s)", msg)
	case carrier.FailureLowWallet:
		return fmt.Sprintf("Assign Failed: Insufficient wallet balance (%s)", msg)
	default:
		return "Assign Failed: " + msg
	}
}
