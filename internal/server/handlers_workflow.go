package server

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/notify"
	"github.com/jonathan/fulfillment-agent/internal/processing"
	"github.com/jonathan/fulfillment-agent/internal/report"
	"github.com/jonathan/fulfillment-agent/internal/types"
)

// handleEmailApproval mails the rows as a CSV attachment to the approver.
func (s *Server) handleEmailApproval(w http.ResponseWriter, r *http.Request) {
	if s.deps.Mailer == nil || !s.deps.Mailer.Configured() {
		s.failure(w, r, &ErrUnavailable{Integration: "email"})
		return
	}

	var req types.RowsRequest
	if !s.readRows(w, r, &req) {
		return
	}

	now := s.now()
	csv, err := report.Render(req.Rows, s.cfg.GSTRate, now)
	if err != nil {
		s.failure(w, r, fmt.Errorf("failed to render export: %w", err))
		return
	}

	approval := notify.Approval{
		Filename:   report.ApprovalFilename(now),
		CSV:        csv,
		OrderCount: processing.UniqueOrderCount(req.Rows),
	}
	if err := s.deps.Mailer.SendApproval(r.Context(), approval); err != nil {
		s.failure(w, r, fmt.Errorf("failed to send email: %w", err))
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "message": "Email sent successfully"})
}

// handleUploadPortal renders the rows to a temporary CSV and submits it to the supplier portal.
func (s *Server) handleUploadPortal(w http.ResponseWriter, r *http.Request) {
	if s.deps.Portal == nil || !s.deps.Portal.Configured() {
		s.failure(w, r, &ErrUnavailable{Integration: "portal"})
		return
	}

	var req types.RowsRequest
	if !s.readRows(w, r, &req) {
		return
	}

	csv, err := report.Render(req.Rows, s.cfg.GSTRate, s.now())
	if err != nil {
		s.failure(w, r, fmt.Errorf("failed to render export: %w", err))
		return
	}

	tmp, err := os.CreateTemp("", "portal-upload-*.csv")
	if err != nil {
		s.failure(w, r, fmt.Errorf("failed to create upload file: %w", err))
		return
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	_, err = tmp.Write(csv)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.failure(w, r, fmt.Errorf("failed to write upload file: %w", err))
		return
	}

	result, err := s.deps.Portal.Upload(r.Context(), tmp.Name())
	if err != nil {
		s.failure(w, r, fmt.Errorf("portal upload failed: %w", err))
		return
	}

	s.logger.Info("portal upload finished",
		zap.String("status", string(result.Outcome.Status)),
		zap.Int("rows", len(req.Rows)),
	)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Upload complete",
		"result":  result,
	})
}

// handleAssignSKU gives a product the next free numeric SKU.
func (s *Server) handleAssignSKU(w http.ResponseWriter, r *http.Request) {
	if s.deps.Products == nil {
		s.failure(w, r, &ErrUnavailable{Integration: "shopify"})
		return
	}

	id := r.PathValue("id")
	sku, err := s.deps.Products.AssignSKU(r.Context(), id)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	s.logger.Info("sku assigned", zap.String("product_id", id), zap.String("sku", sku))
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "sku": sku})
}
