package types

import (
	"github.com/go-playground/validator/v10"
)

// DownloadRequest is the body of an export request.
type DownloadRequest struct {
	Rows        []OrderRow `json:"rows" validate:"required,min=1,dive"`
	SkipHistory bool       `json:"skipHistory,omitempty"`
	Type        string     `json:"type,omitempty" validate:"omitempty,oneof=DOWNLOAD EMAIL"`
}

// RowsRequest carries rows for email approval, portal upload, and batch updates.
type RowsRequest struct {
	Rows []OrderRow `json:"rows" validate:"required,dive"`
}

// LoginRequest is the operator login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

var validate = validator.New()

// Validate validates the DownloadRequest using the validator.
func (r *DownloadRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the RowsRequest using the validator.
func (r *RowsRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the LoginRequest using the validator.
func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}
