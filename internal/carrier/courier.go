package carrier

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// AssignResult is the outcome of one courier assignment.
type AssignResult struct {
	ShipmentID int64
	Success    bool
	AWB        string
	Kind       FailureKind
	Message    string
}

// AssignFailure records a shipment whose assignment failed.
type AssignFailure struct {
	Assignment types.ShipmentAssignment
	Kind       FailureKind
	Message    string
}

// BulkAssignResult aggregates serial assignments.
type BulkAssignResult struct {
	Successful []int64
	Failed     []AssignFailure
}

type assignRequest struct {
	ShipmentID int64 `json:"shipment_id"`
}

type assignResponse struct {
	AWBAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AWBCode        flexString `json:"awb_code"`
			AWBAssignError string     `json:"awb_assign_error"`
			CourierName    string     `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
	Message string `json:"message"`
}

// AssignCourier requests automatic courier and AWB assignment for a shipment.
// Failures are returned in the result, classified by message.
func (c *Client) AssignCourier(ctx context.Context, shipmentID int64) AssignResult {
	var resp assignResponse
	err := c.do(ctx, http.MethodPost, "/v1/external/courier/assign/awb", assignRequest{ShipmentID: shipmentID}, &resp)
	if err != nil {
		msg := Message(err)
		return AssignResult{ShipmentID: shipmentID, Kind: ClassifyFailure(msg), Message: msg}
	}

	awb := string(resp.Response.Data.AWBCode)
	if awb == "" {
		msg := resp.Response.Data.AWBAssignError
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "no AWB code returned"
		}
		return AssignResult{ShipmentID: shipmentID, Kind: ClassifyFailure(msg), Message: msg}
	}

	c.logger.Debug("courier assigned",
		zap.Int64("shipment_id", shipmentID),
		zap.String("awb", awb),
		zap.String("courier", resp.Response.Data.CourierName),
	)
	return AssignResult{ShipmentID: shipmentID, Success: true, AWB: awb}
}

// BulkAssignCouriers assigns couriers one shipment at a time. A failure never aborts the batch.
func (c *Client) BulkAssignCouriers(ctx context.Context, assignments []types.ShipmentAssignment) BulkAssignResult {
	var result BulkAssignResult
	for _, a := range assignments {
		r := c.AssignCourier(ctx, a.ShipmentID)
		if r.Success {
			result.Successful = append(result.Successful, a.ShipmentID)
			continue
		}
		c.logger.Warn("courier assignment failed",
			zap.Int64("shipment_id", a.ShipmentID),
			zap.String("kind", string(r.Kind)),
			zap.String("message", r.Message),
		)
		result.Failed = append(result.Failed, AssignFailure{Assignment: a, Kind: r.Kind, Message: r.Message})
	}
	return result
}

// PickupResult is the outcome of SchedulePickup.
type PickupResult struct {
	Success bool
	Date    string
	Error   string
}

type pickupRequest struct {
	ShipmentID []int64 `json:"shipment_id"`
	PickupDate string  `json:"pickup_date"`
}

// SchedulePickup asks for a pickup today and, if that fails, tomorrow.
// Dates are taken from the local wall clock. The result is informational only.
func (c *Client) SchedulePickup(ctx context.Context, shipmentID int64) PickupResult {
	var lastErr error
	for offset := 0; offset <= 1; offset++ {
		date := c.now().AddDate(0, 0, offset).Format("2006-01-02")
		err := c.do(ctx, http.MethodPost, "/v1/external/courier/generate/pickup", pickupRequest{
			ShipmentID: []int64{shipmentID},
			PickupDate: date,
		}, nil)
		if err == nil {
			return PickupResult{Success: true, Date: date}
		}
		if IsAuthenticationError(err) {
			return PickupResult{Error: err.Error()}
		}
		c.logger.Warn("pickup scheduling failed", zap.Int64("shipment_id", shipmentID), zap.String("date", date), zap.Error(err))
		lastErr = err
	}
	return PickupResult{Error: Message(lastErr)}
}

// LabelResult is the outcome of a label request.
type LabelResult struct {
	Success bool
	URL     string
	Error   string
}

type labelRequest struct {
	ShipmentID []int64 `json:"shipment_id"`
}

type labelResponse struct {
	LabelURL string `json:"label_url"`
	Response string `json:"response"`
	Message  string `json:"message"`
}

// GenerateLabel requests a label document for one shipment.
func (c *Client) GenerateLabel(ctx context.Context, shipmentID int64) LabelResult {
	return c.BulkGenerateLabel(ctx, []int64{shipmentID})
}

// BulkGenerateLabel requests one label document covering every shipment in ids.
func (c *Client) BulkGenerateLabel(ctx context.Context, ids []int64) LabelResult {
	if len(ids) == 0 {
		return LabelResult{Error: "no shipments to label"}
	}

	var resp labelResponse
	if err := c.do(ctx, http.MethodPost, "/v1/external/courier/generate/label", labelRequest{ShipmentID: ids}, &resp); err != nil {
		c.logger.Error("label generation failed", fieldsForError(err)...)
		return LabelResult{Error: Message(err)}
	}

	if resp.LabelURL == "" {
		msg := resp.Message
		if msg == "" {
			msg = resp.Response
		}
		if msg == "" {
			msg = "label URL missing from response"
		}
		return LabelResult{Error: msg}
	}

	return LabelResult{Success: true, URL: resp.LabelURL}
}
