package jobs

import (
	"time"
)

// Job is the externally visible record of a shipping job.
// Fields are additive: once set they are never cleared.
type Job struct {
	ID       string `json:"id"`
	Status   Status `json:"status"`
	Progress string `json:"progress,omitempty"`
	BatchID  string `json:"batchId,omitempty"`

	EstimatedCost   *float64 `json:"estimatedCost,omitempty"`
	CurrentBalance  *float64 `json:"currentBalance,omitempty"`
	Shortfall       *float64 `json:"shortfall,omitempty"`
	OrderCount      *int     `json:"orderCount,omitempty"`
	LineItemCount   *int     `json:"lineItemCount,omitempty"`
	AvgCostPerOrder *float64 `json:"avgCostPerOrder,omitempty"`

	LabelURL        *string `json:"labelUrl"`
	HighRiskURL     *string `json:"highRiskUrl"`
	FailedReportURL *string `json:"failedReportUrl,omitempty"`
	HighRiskCount   *int    `json:"highRiskCount,omitempty"`
	FailedCount     *int    `json:"failedCount,omitempty"`
	SuccessCount    *int    `json:"successCount,omitempty"`

	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch is a partial update. Zero values leave the job unchanged.
type Patch struct {
	Status   Status
	Progress string
	BatchID  string

	EstimatedCost   *float64
	CurrentBalance  *float64
	Shortfall       *float64
	OrderCount      *int
	LineItemCount   *int
	AvgCostPerOrder *float64

	LabelURL        *string
	HighRiskURL     *string
	FailedReportURL *string
	HighRiskCount   *int
	FailedCount     *int
	SuccessCount    *int

	Message string
	Error   string
}

// Apply merges p into j, rejecting illegal status changes. A patch that repeats the current
// status is not a transition.
func (j *Job) Apply(p Patch, now time.Time) error {
	if p.Status != "" && p.Status != j.Status {
		if !CanTransition(j.Status, p.Status) {
			return &TransitionError{JobID: j.ID, From: j.Status, To: p.Status}
		}
		j.Status = p.Status
	} else if p.Status != "" && j.Status.Terminal() {
		return &TransitionError{JobID: j.ID, From: j.Status, To: p.Status}
	}

	setString(&j.Progress, p.Progress)
	setString(&j.BatchID, p.BatchID)
	setString(&j.Message, p.Message)
	setString(&j.Error, p.Error)

	setPtr(&j.EstimatedCost, p.EstimatedCost)
	setPtr(&j.CurrentBalance, p.CurrentBalance)
	setPtr(&j.Shortfall, p.Shortfall)
	setPtr(&j.OrderCount, p.OrderCount)
	setPtr(&j.LineItemCount, p.LineItemCount)
	setPtr(&j.AvgCostPerOrder, p.AvgCostPerOrder)
	setPtr(&j.LabelURL, p.LabelURL)
	setPtr(&j.HighRiskURL, p.HighRiskURL)
	setPtr(&j.FailedReportURL, p.FailedReportURL)
	setPtr(&j.HighRiskCount, p.HighRiskCount)
	setPtr(&j.FailedCount, p.FailedCount)
	setPtr(&j.SuccessCount, p.SuccessCount)

	j.UpdatedAt = now
	return nil
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	c := *j
	c.EstimatedCost = clonePtr(j.EstimatedCost)
	c.CurrentBalance = clonePtr(j.CurrentBalance)
	c.Shortfall = clonePtr(j.Shortfall)
	c.OrderCount = clonePtr(j.OrderCount)
	c.LineItemCount = clonePtr(j.LineItemCount)
	c.AvgCostPerOrder = clonePtr(j.AvgCostPerOrder)
	c.LabelURL = clonePtr(j.LabelURL)
	c.HighRiskURL = clonePtr(j.HighRiskURL)
	c.FailedReportURL = clonePtr(j.FailedReportURL)
	c.HighRiskCount = clonePtr(j.HighRiskCount)
	c.FailedCount = clonePtr(j.FailedCount)
	c.SuccessCount = clonePtr(j.SuccessCount)
	return &c
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst **T, v *T) {
	if v != nil {
		c := *v
		*dst = &c
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ptr returns a pointer to v.
func ptr[T any](v T) *T {
	return &v
}
