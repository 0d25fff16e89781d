// Package jobs runs shipping jobs: a background state machine that takes the latest export
// batch through risk review, a wallet check, carrier lookup, courier assignment, and label
// generation, recording progress in a Store that clients poll.
package jobs

import "fmt"

// Status is the phase of a job.
type Status string

// Job statuses in their forward order. RequiresMoney and Failed are early exits.
const (
	StatusStarting        Status = "STARTING"
	StatusFetchingDetails Status = "FETCHING_DETAILS"
	StatusCheckingWallet  Status = "CHECKING_WALLET"
	StatusProcessing      Status = "PROCESSING_SHIPROCKET"
	StatusGeneratingLabel Status = "GENERATING_LABELS"
	StatusCompleted       Status = "COMPLETED"
	StatusRequiresMoney   Status = "REQUIRES_MONEY"
	StatusFailed          Status = "FAILED"
)

var statusRank = map[Status]int{
	StatusStarting:        0,
	StatusFetchingDetails: 1,
	StatusCheckingWallet:  2,
	StatusProcessing:      3,
	StatusGeneratingLabel: 4,
	StatusCompleted:       5,
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRequiresMoney || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusRequiresMoney || s == StatusFailed
}

// CanTransition reports whether a job may move from one status to another.
// Phases only move forward and may be skipped. FAILED is reachable from any running phase,
// REQUIRES_MONEY only from CHECKING_WALLET, and terminal statuses never change.
func CanTransition(from, to Status) bool {
	if from.Terminal() || !from.Valid() || !to.Valid() {
		return false
	}
	switch to {
	case StatusFailed:
		return true
	case StatusRequiresMoney:
		return from == StatusCheckingWallet
	}
	return statusRank[to] > statusRank[from]
}

// TransitionError is returned when an update would move a job backwards or out of a terminal status.
type TransitionError struct {
	JobID string
	From  Status
	To    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: illegal transition %s -> %s", e.JobID, e.From, e.To)
}
