// Package pricing provides domain error types for price resolution.
package pricing

import (
	"errors"
	"fmt"
)

// Sentinel errors used for classification via errors.Is.
var (
	// ErrMissingParameter indicates a required query field was empty.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrNoPricingData indicates every matching strategy was exhausted
	// without finding a usable price row.
	ErrNoPricingData = errors.New("no pricing data found")

	// ErrMachineSpecNotFound indicates the machine type could not be
	// looked up in any probed zone of the requested region.
	ErrMachineSpecNotFound = errors.New("machine type not available in region")

	// ErrUpstream indicates a transport or auth failure from a catalog call.
	ErrUpstream = errors.New("upstream catalog unavailable")

	// ErrUnsupportedProvider indicates a provider with no registered resolver.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// UnsupportedProviderError reports a provider the service cannot resolve.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider %q", e.Provider)
}

func (e *UnsupportedProviderError) Is(target error) bool {
	return target == ErrUnsupportedProvider
}

// MissingParameterError reports a required field that was absent.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing %s parameter", e.Name)
}

func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// NoPricingDataError reports exhaustion of all matching strategies for a
// specific identifier and region.
type NoPricingDataError struct {
	Provider   Provider
	Identifier string
	Region     string
	Detail     string
}

func (e *NoPricingDataError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s for %s in %s", e.Provider, e.Detail, e.Identifier, e.Region)
	}
	return fmt.Sprintf("%s: no pricing data found for %s in %s", e.Provider, e.Identifier, e.Region)
}

func (e *NoPricingDataError) Is(target error) bool {
	return target == ErrNoPricingData
}

// MachineSpecNotFoundError reports a failed GCP machine-type lookup.
type MachineSpecNotFoundError struct {
	MachineType string
	Region      string
}

func (e *MachineSpecNotFoundError) Error() string {
	return fmt.Sprintf("machine type %s not available in region %s", e.MachineType, e.Region)
}

func (e *MachineSpecNotFoundError) Is(target error) bool {
	return target == ErrMachineSpecNotFound
}

// UpstreamError wraps a provider-native transport or auth failure.
type UpstreamError struct {
	Provider Provider
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s catalog call failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
