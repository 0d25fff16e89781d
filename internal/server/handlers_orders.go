package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/processing"
	"github.com/jonathan/fulfillment-agent/internal/report"
	"github.com/jonathan/fulfillment-agent/internal/schemas"
	"github.com/jonathan/fulfillment-agent/internal/storefront"
	"github.com/jonathan/fulfillment-agent/internal/types"
)

const dateLayout = "2006-01-02"

// skippedBatchID names exports that were not recorded in history.
const skippedBatchID = "000"

// handleOrders fetches unfulfilled orders and returns export rows with totals.
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orders == nil {
		s.failure(w, r, &ErrUnavailable{Integration: "shopify"})
		return
	}

	opts, err := s.fetchOptions(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	orders, err := s.deps.Orders.GetUnfulfilledOrders(r.Context(), opts)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	rows := processing.ProcessOrders(orders, processing.Options{
		StoreDomain: s.cfg.StoreDomain,
		Logger:      s.logger,
	})

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"stats":    processing.Summarize(rows, s.cfg.GSTRate),
		"orders":   rows,
		"rawCount": len(orders),
	})
}

// fetchOptions parses ?days, ?startDate and ?endDate.
func (s *Server) fetchOptions(r *http.Request) (storefront.FetchOptions, error) {
	q := r.URL.Query()
	opts := storefront.FetchOptions{DaysLookback: s.cfg.LookbackDays}

	if raw := q.Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			return opts, &ErrValidation{Field: "days", Message: "must be a positive integer"}
		}
		opts.DaysLookback = days
	}
	for field, dst := range map[string]*string{"startDate": &opts.StartDate, "endDate": &opts.EndDate} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, raw); err != nil {
			return opts, &ErrValidation{Field: field, Message: "must be YYYY-MM-DD"}
		}
		*dst = raw
	}
	return opts, nil
}

// readRows reads a body, checks it against the rows schema, and decodes it into dst.
func (s *Server) readRows(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}

	if err := schemas.ValidateRows(body); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			s.jsonResponse(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Invalid data provided",
				"details": ve.Errors,
			})
			return false
		}
		s.failure(w, r, err)
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// handleDownload records the rows as a batch and returns them as CSV, or XLSX with ?format=xlsx.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req types.DownloadRequest
	if !s.readRows(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	batchID := skippedBatchID
	if !req.SkipHistory {
		batchType := req.Type
		if batchType == "" {
			batchType = types.BatchTypeDownload
		}
		batch, err := s.deps.History.Save(r.Context(), batchType, req.Rows)
		if err != nil {
			s.failure(w, r, fmt.Errorf("failed to save batch: %w", err))
			return
		}
		batchID = batch.ID
	}

	now := s.now()
	var (
		data        []byte
		err         error
		ext         = "csv"
		contentType = "text/csv"
	)
	if r.URL.Query().Get("format") == "xlsx" {
		ext = "xlsx"
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		data, err = report.RenderXLSX(req.Rows, s.cfg.GSTRate)
	} else {
		data, err = report.Render(req.Rows, s.cfg.GSTRate, now)
	}
	if err != nil {
		s.failure(w, r, fmt.Errorf("failed to render export: %w", err))
		return
	}

	filename := report.ExportFilename(req.Rows, batchID, now, ext)
	s.logger.Info("export generated",
		zap.String("filename", filename),
		zap.String("batch_id", batchID),
		zap.Int("rows", len(req.Rows)),
	)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("X-Filename", filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleDownloadFile serves a stored report by name.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	path, err := s.deps.Reports.Path(name)
	if err != nil {
		status := HTTPStatus(err)
		msg := "File not found"
		if status == http.StatusBadRequest {
			msg = "Invalid filename"
		}
		s.errorResponse(w, status, msg)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	http.ServeFile(w, r, path)
}

// handleListHistory returns every saved batch, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	batches, err := s.deps.History.List(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if batches == nil {
		batches = []types.Batch{}
	}
	s.jsonResponse(w, http.StatusOK, batches)
}

// handleUpdateHistory replaces the rows of a saved batch.
func (s *Server) handleUpdateHistory(w http.ResponseWriter, r *http.Request) {
	var req types.RowsRequest
	if !s.readRows(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	batch, err := s.deps.History.Update(r.Context(), r.PathValue("id"), req.Rows)
	if err != nil {
		if HTTPStatus(err) == http.StatusNotFound {
			s.errorResponse(w, http.StatusNotFound, "Batch not found")
			return
		}
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "batch": batch})
}
