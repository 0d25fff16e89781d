// Package server provides the HTTP API for the fulfillment agent.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/config"
	"github.com/jonathan/fulfillment-agent/internal/history"
	"github.com/jonathan/fulfillment-agent/internal/jobs"
	"github.com/jonathan/fulfillment-agent/internal/notify"
	"github.com/jonathan/fulfillment-agent/internal/portal"
	"github.com/jonathan/fulfillment-agent/internal/report"
	"github.com/jonathan/fulfillment-agent/internal/server/middleware"
	"github.com/jonathan/fulfillment-agent/internal/server/ratelimit"
	"github.com/jonathan/fulfillment-agent/internal/storefront"
	"github.com/jonathan/fulfillment-agent/internal/types"
)

// maxBodyBytes caps JSON request bodies; exports can carry a few thousand rows.
const maxBodyBytes = 50 << 20

// OrderLister lists unfulfilled storefront orders.
type OrderLister interface {
	GetUnfulfilledOrders(ctx context.Context, opts storefront.FetchOptions) ([]*types.CanonicalOrder, error)
}

// SKUAssigner assigns the next free numeric SKU to a product.
type SKUAssigner interface {
	AssignSKU(ctx context.Context, productID string) (string, error)
}

// ApprovalSender emails an export for approval.
type ApprovalSender interface {
	Configured() bool
	SendApproval(ctx context.Context, a notify.Approval) error
}

// PortalUploader pushes an export file to the supplier portal.
type PortalUploader interface {
	Configured() bool
	Upload(ctx context.Context, path string) (*portal.Result, error)
}

// JobService starts label jobs and reads their records.
type JobService interface {
	Submit(ctx context.Context) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Store() jobs.Store
	Running() int64
}

// Integrations reports which external systems have credentials.
type Integrations struct {
	Shopify    bool
	Shiprocket bool
	SMTP       bool
	Portal     bool
}

// Config holds server configuration
type Config struct {
	Port           int
	StoreDomain    string
	GSTRate        float64
	LookbackDays   int
	AllowedOrigins []string
	Integrations   Integrations

	RateLimit *ratelimit.Config
	// JWT enables operator auth on /api routes when set.
	JWT       *config.JWTConfig
	Passwords *config.PasswordConfig
	Operator  Operator

	// WatchInterval is the poll interval for job event streams.
	WatchInterval time.Duration
	Logger        *zap.Logger
}

// Deps are the collaborators behind the API. Nil integrations answer 503.
type Deps struct {
	Orders   OrderLister
	Products SKUAssigner
	History  history.Store
	Jobs     JobService
	Reports  *report.FileStore
	Mailer   ApprovalSender
	Portal   PortalUploader
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	cfg         Config
	deps        Deps
	logger      *zap.Logger
	now         func() time.Time
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	authHandler *AuthHandler
	requireAuth func(http.Handler) http.Handler
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.History == nil || deps.Jobs == nil || deps.Reports == nil {
		return nil, errors.New("server requires history, jobs and reports")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = storefront.DefaultLookbackDays
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = jobs.DefaultPollInterval
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		logger:      cfg.Logger.Named("http"),
		now:         time.Now,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
	}

	if cfg.JWT != nil {
		if cfg.Passwords == nil || cfg.Operator.Username == "" || cfg.Operator.PasswordHash == "" {
			return nil, errors.New("operator credentials are required when JWT auth is enabled")
		}
		s.jwtService = NewJWTService(cfg.JWT)
		s.authHandler = NewAuthHandler(cfg.Operator, cfg.Passwords, s.jwtService, s.logger)
		s.requireAuth = middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // portal uploads drive a browser; SSE clears its own deadline
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler builds the routed handler with the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/v2/status", s.handleStatusV2)
	if s.authHandler != nil {
		mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	}

	// Orders and exports
	s.protect(mux, "GET /api/orders", s.handleOrders)
	s.protect(mux, "POST /api/download", s.handleDownload)
	s.protect(mux, "GET /api/download-file/{filename}", s.handleDownloadFile)
	s.protect(mux, "GET /api/history", s.handleListHistory)
	s.protect(mux, "PUT /api/history/{id}", s.handleUpdateHistory)

	// Approval workflow
	s.protect(mux, "POST /api/email-approval", s.handleEmailApproval)
	s.protect(mux, "POST /api/upload-portal", s.handleUploadPortal)
	s.protect(mux, "POST /api/products/{id}/assign-sku", s.handleAssignSKU)

	// Label jobs
	s.protect(mux, "POST /api/jobs", s.handleCreateJob)
	s.protect(mux, "POST /api/shiprocket/generate-labels", s.handleCreateJob)
	s.protect(mux, "GET /api/jobs/{id}", s.handleGetJob)
	s.protect(mux, "GET /api/shiprocket/job/{id}", s.handleGetJob)
	s.protect(mux, "GET /api/jobs/{id}/events", s.handleJobEvents)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// protect registers h behind operator auth when auth is enabled.
func (s *Server) protect(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	if s.requireAuth == nil {
		mux.HandleFunc(pattern, h)
		return
	}
	mux.Handle(pattern, s.requireAuth(h))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	defer s.rateLimiter.Stop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	anyOrigin := len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case anyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.cfg.AllowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-Filename, Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for access logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps SSE working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports storefront and carrier readiness.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":      "online",
		"store":       s.cfg.StoreDomain,
		"connected":   s.cfg.Integrations.Shopify,
		"shiprocket":  s.cfg.Integrations.Shiprocket,
		"authEnabled": s.jwtService != nil,
		"runningJobs": s.deps.Jobs.Running(),
	})
}

// handleStatusV2 reports readiness of the approval workflow.
func (s *Server) handleStatusV2(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"gmail":    s.cfg.Integrations.SMTP,
		"email":    s.cfg.Integrations.SMTP,
		"portal":   s.cfg.Integrations.Portal,
		"lookback": s.cfg.LookbackDays,
	})
}

// writeJSON writes data as a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// writeJSONError writes {"error": message}.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, map[string]string{"error": message})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]any{"success": false, "error": message})
}

// failure maps err to a status and writes it. Server errors are logged.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID extracts the client identifier from the request.
// RemoteAddr only; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		retry := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = retry
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}

	s.logger.Warn("rate limit exceeded",
		zap.String("client", clientID),
		zap.Int("limit", info.Limit),
		zap.Time("reset", info.ResetTime),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
