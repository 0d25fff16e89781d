package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/fulfillment-agent/internal/carrier"
	"github.com/jonathan/fulfillment-agent/internal/report"
	"github.com/jonathan/fulfillment-agent/internal/types"
)

type fakeHistory struct {
	batches []types.Batch
	err     error
}

func (h *fakeHistory) Latest(_ context.Context) (*types.Batch, error) {
	if h.err != nil {
		return nil, h.err
	}
	if len(h.batches) == 0 {
		return nil, nil
	}
	b := h.batches[0]
	return &b, nil
}

func (h *fakeHistory) List(_ context.Context) ([]types.Batch, error) {
	return h.batches, h.err
}

func (h *fakeHistory) Save(_ context.Context, _ string, _ []types.OrderRow) (*types.Batch, error) {
	return nil, errors.New("not implemented")
}

func (h *fakeHistory) Update(_ context.Context, _ string, _ []types.OrderRow) (*types.Batch, error) {
	return nil, errors.New("not implemented")
}

type fakeOrders struct {
	mu      sync.Mutex
	orders  map[string]*types.CanonicalOrder
	errs    map[string]error
	calls   map[string]int
	panicOn string
}

func newFakeOrders(orders ...*types.CanonicalOrder) *fakeOrders {
	f := &fakeOrders{
		orders: make(map[string]*types.CanonicalOrder),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
	for _, o := range orders {
		f.orders[o.NumericID()] = o
	}
	return f
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*types.CanonicalOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if id == f.panicOn {
		panic("storefront exploded")
	}
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	return o, nil
}

type fakeCarrier struct {
	mu             sync.Mutex
	balance        *float64
	balanceErr     error
	onBalance      func()
	shipments      map[string]carrier.SearchResult
	lookupErrs     map[string]error
	assignFailures map[int64]carrier.AssignFailure
	label          carrier.LabelResult
	created        map[string]carrier.OrderResult
	updated        map[string]carrier.OrderResult

	lookups  []string
	creates  []string
	updates  []string
	assigned []types.ShipmentAssignment
	labelled []int64
	pickups  []int64
}

func newFakeCarrier() *fakeCarrier {
	return &fakeCarrier{
		shipments:      make(map[string]carrier.SearchResult),
		lookupErrs:     make(map[string]error),
		assignFailures: make(map[int64]carrier.AssignFailure),
		created:        make(map[string]carrier.OrderResult),
		updated:        make(map[string]carrier.OrderResult),
		label:          carrier.LabelResult{Success: true, URL: "https://labels.example/batch.pdf"},
	}
}

func (c *fakeCarrier) GetWalletBalance(_ context.Context) (*float64, error) {
	if c.onBalance != nil {
		c.onBalance()
	}
	return c.balance, c.balanceErr
}

func (c *fakeCarrier) FindOrderByExternalID(_ context.Context, externalID string) (*carrier.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups = append(c.lookups, externalID)
	if err := c.lookupErrs[externalID]; err != nil {
		return nil, err
	}
	res, ok := c.shipments[externalID]
	if !ok {
		return &carrier.SearchResult{}, nil
	}
	return &res, nil
}

func (c *fakeCarrier) CreateOrder(_ context.Context, order *types.CanonicalOrder) carrier.OrderResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates = append(c.creates, order.Name)
	if res, ok := c.created[order.Name]; ok {
		return res
	}
	return carrier.OrderResult{Error: "create not expected"}
}

func (c *fakeCarrier) UpdateOrder(_ context.Context, order *types.CanonicalOrder) carrier.OrderResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, order.Name)
	if res, ok := c.updated[order.Name]; ok {
		return res
	}
	return carrier.OrderResult{Error: "update not expected"}
}

func (c *fakeCarrier) BulkAssignCouriers(_ context.Context, assignments []types.ShipmentAssignment) carrier.BulkAssignResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assigned = append(c.assigned, assignments...)
	var result carrier.BulkAssignResult
	for _, a := range assignments {
		if f, ok := c.assignFailures[a.ShipmentID]; ok {
			result.Failed = append(result.Failed, carrier.AssignFailure{Assignment: a, Kind: f.Kind, Message: f.Message})
			continue
		}
		result.Successful = append(result.Successful, a.ShipmentID)
	}
	return result
}

func (c *fakeCarrier) SchedulePickup(_ context.Context, shipmentID int64) carrier.PickupResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pickups = append(c.pickups, shipmentID)
	return carrier.PickupResult{Success: true, Date: "2026-01-02"}
}

func (c *fakeCarrier) BulkGenerateLabel(_ context.Context, ids []int64) carrier.LabelResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labelled = append(c.labelled, ids...)
	return c.label
}

func testOrder(n int, name string) *types.CanonicalOrder {
	return &types.CanonicalOrder{
		ID:        fmt.Sprintf("gid://shopify/Order/%d", n),
		Name:      fmt.Sprintf("#%d", n),
		Phone:     "9876543210",
		RiskLevel: types.RiskLow,
		ShippingAddress: &types.ShippingAddress{
			Name:     name,
			Address1: fmt.Sprintf("%d MG Road, Indiranagar", n),
			City:     "Bengaluru",
			Zip:      "560038",
		},
	}
}

func rowFor(o *types.CanonicalOrder) types.OrderRow {
	return types.OrderRow{
		ID:           o.ID,
		OrderID:      strings.TrimPrefix(o.Name, "#"),
		CustomerName: o.CustomerName(),
		Category:     "Premium Tough Case",
		Model:        "iPhone 15",
		Payment:      types.PaymentPrepaid,
	}
}

func batchOf(rows ...types.OrderRow) *fakeHistory {
	return &fakeHistory{batches: []types.Batch{{ID: "000007", Type: types.BatchTypeDownload, Count: len(rows), Rows: rows}}}
}

type runnerFixture struct {
	runner     *Runner
	store      *MemoryStore
	reportsDir string
}

func newFixture(t *testing.T, hist *fakeHistory, orders *fakeOrders, c *fakeCarrier, cfg RunnerConfig) *runnerFixture {
	t.Helper()
	dir := t.TempDir()
	reports, err := report.NewFileStore(dir)
	require.NoError(t, err)
	store := NewMemoryStore()
	return &runnerFixture{
		runner:     NewRunner(store, hist, orders, c, reports, cfg, nil),
		store:      store,
		reportsDir: dir,
	}
}

func (f *runnerFixture) run(t *testing.T) *Job {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Create(ctx, &Job{ID: "job-1", Status: StatusStarting}))
	f.runner.Run(ctx, "job-1")
	job, err := f.store.Get(ctx, "job-1")
	require.NoError(t, err)
	return job
}
