package types

import "time"

// Batch types.
const (
	BatchTypeDownload = "DOWNLOAD"
	BatchTypeEmail    = "EMAIL"
)

// Batch is a persisted snapshot of exported rows.
type Batch struct {
	ID           string     `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Type         string     `json:"type"`
	Count        int        `json:"count"`
	Rows         []OrderRow `json:"rows"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// RiskVerdict is the outcome of a single risk check.
type RiskVerdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Pass is the verdict for an order that cleared a check.
func Pass() RiskVerdict {
	return RiskVerdict{Valid: true}
}

// Fail builds a failing verdict with the given reason.
func Fail(reason string) RiskVerdict {
	return RiskVerdict{Valid: false, Reason: reason}
}

// ShipmentAssignment links a storefront order to the carrier shipment found for it.
type ShipmentAssignment struct {
	ShipmentID int64           `json:"shipmentId"`
	OrderID    int64           `json:"orderId"`
	Order      *CanonicalOrder `json:"order,omitempty"`
}
