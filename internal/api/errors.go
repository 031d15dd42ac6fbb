// Package api provides error handling utilities for the REST API.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudprice/cloudprice/internal/pricing"
)

// APIError pairs an HTTP status with the message serialized to clients.
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// MapDomainError maps pricing errors to API errors. Validation failures
// are the client's fault. Only the Azure feed distinguishes "no rows for
// this SKU" as a not-found; an exhausted AWS catalog or an unknown GCP
// machine type surfaces as a server error, matching each provider's
// upstream behavior.
func MapDomainError(err error) *APIError {
	if err == nil {
		return nil
	}

	var noPricing *pricing.NoPricingDataError
	switch {
	case errors.Is(err, pricing.ErrMissingParameter),
		errors.Is(err, pricing.ErrUnsupportedProvider):
		return &APIError{HTTPStatus: http.StatusBadRequest, Message: err.Error()}
	case errors.As(err, &noPricing) && noPricing.Provider == pricing.ProviderAzure:
		return &APIError{HTTPStatus: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{HTTPStatus: http.StatusGatewayTimeout, Message: "upstream catalog timed out"}
	default:
		return &APIError{HTTPStatus: http.StatusInternalServerError, Message: err.Error()}
	}
}
