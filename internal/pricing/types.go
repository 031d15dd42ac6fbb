// Package pricing resolves on-demand compute prices from cloud provider
// catalogs and normalizes them into a single result shape.
package pricing

import (
	"context"
	"strings"
)

// Provider identifies a supported cloud provider.
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderAzure Provider = "azure"
	ProviderGCP   Provider = "gcp"
)

// ParseProvider normalizes a provider tag. It returns false for anything
// other than the three supported providers.
func ParseProvider(s string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderAWS:
		return ProviderAWS, true
	case ProviderAzure:
		return ProviderAzure, true
	case ProviderGCP:
		return ProviderGCP, true
	}
	return "", false
}

// Display returns the conventional display form of the provider tag.
func (p Provider) Display() string {
	switch p {
	case ProviderAWS:
		return "AWS"
	case ProviderAzure:
		return "Azure"
	case ProviderGCP:
		return "GCP"
	}
	return string(p)
}

// PriceQuery is a single price lookup request. Constructed per request and
// never mutated.
type PriceQuery struct {
	Provider   Provider
	Identifier string // instance type, VM SKU, or machine type
	Region     string
	OSHint     string // optional; Azure only, defaults to "linux"
}

// SourceMetadata describes the catalog row a price was taken from.
type SourceMetadata struct {
	Unit        string
	PriceType   string
	ProductName string
	MeterName   string
}

// MachineCost is the per-dimension cost breakdown for synthesized prices.
// Only set for GCP, where the hourly price is computed from vCPU and memory
// rates rather than read off a single catalog row.
type MachineCost struct {
	VCPUs             int64
	MemoryGB          float64
	CPUCostPerHour    float64
	MemoryCostPerHour float64
}

// NormalizedPrice is the uniform result shape produced by every resolver.
// PricePerHourUSD is always a positive finite number; a resolution that
// cannot satisfy that fails instead of returning a zero price.
type NormalizedPrice struct {
	Provider        Provider
	Identifier      string
	Region          string
	LocationName    string // catalog display name for the region; serving zone for GCP
	PricePerHourUSD float64
	Currency        string
	Source          SourceMetadata
	Specs           *MachineCost
}

// PriceResolver resolves a query against one provider's catalogs.
type PriceResolver interface {
	Resolve(ctx context.Context, q PriceQuery) (*NormalizedPrice, error)
}
