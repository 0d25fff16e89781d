package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/config"
	"github.com/jonathan/fulfillment-agent/internal/types"
)

// Operator is the single account allowed to use the API.
type Operator struct {
	Username     string
	PasswordHash string
}

// AuthHandler handles operator login.
type AuthHandler struct {
	operator   Operator
	passwords  *config.PasswordConfig
	jwtService *JWTService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(operator Operator, passwords *config.PasswordConfig, jwtService *JWTService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		operator:   operator,
		passwords:  passwords,
		jwtService: jwtService,
		validator:  validator.New(),
		logger:     logger,
	}
}

// authenticate checks credentials against the configured operator.
func (h *AuthHandler) authenticate(req *types.LoginRequest) error {
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.operator.Username)) == 1
	// Always run bcrypt so timing does not reveal whether the username matched.
	passOK := h.passwords.VerifyPassword(req.Password, h.operator.PasswordHash)
	if !userOK || !passOK {
		return &ErrInvalidCredentials{}
	}
	return nil
}

// Login handles operator login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	if err := h.authenticate(&req); err != nil {
		h.logger.Warn("login rejected", zap.String("username", req.Username))
		writeJSONError(w, HTTPStatus(err), err.Error())
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(h.operator.Username)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, types.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// extractValidationErrors converts validator errors to a readable string.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}
