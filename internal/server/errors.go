package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/fulfillment-agent/internal/carrier"
	"github.com/jonathan/fulfillment-agent/internal/history"
	"github.com/jonathan/fulfillment-agent/internal/jobs"
	"github.com/jonathan/fulfillment-agent/internal/notify"
	"github.com/jonathan/fulfillment-agent/internal/portal"
	"github.com/jonathan/fulfillment-agent/internal/report"
	"github.com/jonathan/fulfillment-agent/internal/schemas"
	"github.com/jonathan/fulfillment-agent/internal/storefront"
)

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnavailable indicates an integration that is not configured on this deployment.
type ErrUnavailable struct {
	Integration string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s integration is not configured", e.Integration)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		invalidCreds *ErrInvalidCredentials
		validation   *ErrValidation
		schemaErr    *schemas.ValidationError
		unavailable  *ErrUnavailable
		jobNotFound  *jobs.NotFoundError
		batchMissing *history.NotFoundError
		shopMissing  *storefront.NotFoundError
		transition   *jobs.TransitionError
		carrierAuth  *carrier.AuthenticationError
		shopErr      *storefront.GraphQLError
	)
	switch {
	case errors.As(err, &invalidCreds):
		return http.StatusUnauthorized
	case errors.As(err, &validation), errors.As(err, &schemaErr), errors.Is(err, report.ErrInvalidFilename):
		return http.StatusBadRequest
	case errors.As(err, &jobNotFound), errors.As(err, &batchMissing), errors.As(err, &shopMissing),
		errors.Is(err, report.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &unavailable), errors.Is(err, storefront.ErrNotConfigured),
		errors.Is(err, notify.ErrNotConfigured), errors.Is(err, portal.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &carrierAuth), errors.As(err, &shopErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
