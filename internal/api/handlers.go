// Package api provides HTTP handlers for the price service REST API.
package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudprice/cloudprice/internal/pricing"
)

// Resolution deadlines per provider. Azure's paginated feed is the slow
// path and gets more room.
const (
	awsResolveTimeout   = 30 * time.Second
	azureResolveTimeout = 60 * time.Second
	gcpResolveTimeout   = 30 * time.Second
)

// PriceService is what the handlers need from the pricing façade.
type PriceService interface {
	ResolvePrice(ctx context.Context, q pricing.PriceQuery) (*pricing.NormalizedPrice, error)
	Compare(ctx context.Context, queries []pricing.PriceQuery) *pricing.CompareResult
}

// AWSCatalog lists AWS regions and instance types.
type AWSCatalog interface {
	Regions(ctx context.Context) ([]string, error)
	InstanceTypes(ctx context.Context, region string) ([]string, error)
}

// AzureCatalog lists Azure locations and VM sizes.
type AzureCatalog interface {
	Regions(ctx context.Context) ([]string, error)
	VMSizes(ctx context.Context, region string) ([]string, error)
}

// GCPCatalog lists GCP regions and machine types.
type GCPCatalog interface {
	Regions(ctx context.Context) ([]string, error)
	MachineTypes(ctx context.Context, region string) ([]string, error)
}

// Handler holds the API dependencies. Catalogs are optional; endpoints
// whose catalog is absent answer 503.
type Handler struct {
	prices         PriceService
	aws            AWSCatalog
	azure          AzureCatalog
	gcp            GCPCatalog
	defaultRegions map[pricing.Provider]string
	logger         zerolog.Logger
}

// NewHandler creates an API handler.
func NewHandler(prices PriceService, aws AWSCatalog, azure AzureCatalog, gcp GCPCatalog, logger zerolog.Logger) *Handler {
	return &Handler{
		prices:         prices,
		aws:            aws,
		azure:          azure,
		gcp:            gcp,
		defaultRegions: make(map[pricing.Provider]string),
		logger:         logger.With().Str("component", "api").Logger(),
	}
}

// SetDefaultRegion sets the region the AWS and GCP listing endpoints use
// when the request omits one.
func (h *Handler) SetDefaultRegion(p pricing.Provider, region string) {
	if region != "" {
		h.defaultRegions[p] = region
	}
}

type awsPriceResponse struct {
	Provider        string  `json:"provider"`
	InstanceType    string  `json:"instanceType"`
	Region          string  `json:"region"`
	LocationName    string  `json:"locationName"`
	PricePerHourUSD float64 `json:"pricePerHourUSD"`
}

type azurePriceResponse struct {
	SkuName     string  `json:"skuName"`
	Region      string  `json:"region"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Unit        string  `json:"unit"`
	PriceType   string  `json:"priceType"`
	ProductName string  `json:"productName"`
	MeterName   string  `json:"meterName"`
}

type gcpSpecsResponse struct {
	VCPUs             int64   `json:"vCpus"`
	MemoryGB          float64 `json:"memoryGb"`
	CPUCostPerHour    float64 `json:"cpuCostPerHour"`
	MemoryCostPerHour float64 `json:"memoryCostPerHour"`
}

type gcpPriceResponse struct {
	Provider        string           `json:"provider"`
	InstanceType    string           `json:"instanceType"`
	Region          string           `json:"region"`
	PricePerHourUSD float64          `json:"pricePerHourUSD"`
	Specs           gcpSpecsResponse `json:"specs"`
}

// GetAWSPrice handles GET /api/aws-price.
func (h *Handler) GetAWSPrice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), awsResolveTimeout)
	defer cancel()

	price, err := h.prices.ResolvePrice(ctx, pricing.PriceQuery{
		Provider:   pricing.ProviderAWS,
		Identifier: r.URL.Query().Get("instanceType"),
		Region:     r.URL.Query().Get("region"),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, awsPriceResponse{
		Provider:        price.Provider.Display(),
		InstanceType:    price.Identifier,
		Region:          price.Region,
		LocationName:    price.LocationName,
		PricePerHourUSD: price.PricePerHourUSD,
	})
}

// GetAzurePrice handles GET /api/azure-price.
func (h *Handler) GetAzurePrice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), azureResolveTimeout)
	defer cancel()

	os := r.URL.Query().Get("os")
	if os == "" {
		os = "linux"
	}

	price, err := h.prices.ResolvePrice(ctx, pricing.PriceQuery{
		Provider:   pricing.ProviderAzure,
		Identifier: r.URL.Query().Get("skuName"),
		Region:     r.URL.Query().Get("region"),
		OSHint:     os,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, azurePriceResponse{
		SkuName:     price.Identifier,
		Region:      price.Region,
		Price:       price.PricePerHourUSD,
		Currency:    price.Currency,
		Unit:        price.Source.Unit,
		PriceType:   price.Source.PriceType,
		ProductName: price.Source.ProductName,
		MeterName:   price.Source.MeterName,
	})
}

// GetGCPPrice handles GET /api/gcp-price.
func (h *Handler) GetGCPPrice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), gcpResolveTimeout)
	defer cancel()

	price, err := h.prices.ResolvePrice(ctx, pricing.PriceQuery{
		Provider:   pricing.ProviderGCP,
		Identifier: r.URL.Query().Get("instanceType"),
		Region:     r.URL.Query().Get("region"),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := gcpPriceResponse{
		Provider:        price.Provider.Display(),
		InstanceType:    price.Identifier,
		Region:          price.Region,
		PricePerHourUSD: round4(price.PricePerHourUSD),
	}
	if price.Specs != nil {
		resp.Specs = gcpSpecsResponse{
			VCPUs:             price.Specs.VCPUs,
			MemoryGB:          round1(price.Specs.MemoryGB),
			CPUCostPerHour:    round4(price.Specs.CPUCostPerHour),
			MemoryCostPerHour: round4(price.Specs.MemoryCostPerHour),
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Dollar figures render with four decimal places, memory sizes with one.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type compareEntry struct {
	Provider        string  `json:"provider"`
	Identifier      string  `json:"identifier"`
	Region          string  `json:"region"`
	PricePerHourUSD float64 `json:"pricePerHourUSD"`
	Currency        string  `json:"currency"`
}

type compareResponse struct {
	ComparisonID string            `json:"comparisonId"`
	Results      []compareEntry    `json:"results"`
	Errors       map[string]string `json:"errors,omitempty"`
	Cheapest     *compareEntry     `json:"cheapest,omitempty"`
}

// ComparePrices handles GET /api/compare. Each provider is queried only
// when its identifier parameter is present.
func (h *Handler) ComparePrices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), azureResolveTimeout)
	defer cancel()

	query := r.URL.Query()
	var queries []pricing.PriceQuery
	if v := query.Get("instanceType"); v != "" {
		queries = append(queries, pricing.PriceQuery{
			Provider:   pricing.ProviderAWS,
			Identifier: v,
			Region:     query.Get("awsRegion"),
		})
	}
	if v := query.Get("skuName"); v != "" {
		os := query.Get("os")
		if os == "" {
			os = "linux"
		}
		queries = append(queries, pricing.PriceQuery{
			Provider:   pricing.ProviderAzure,
			Identifier: v,
			Region:     query.Get("azureRegion"),
			OSHint:     os,
		})
	}
	if v := query.Get("gcpInstanceType"); v != "" {
		queries = append(queries, pricing.PriceQuery{
			Provider:   pricing.ProviderGCP,
			Identifier: v,
			Region:     query.Get("gcpRegion"),
		})
	}
	if len(queries) == 0 {
		h.writeError(w, http.StatusBadRequest, "at least one of instanceType, skuName, gcpInstanceType is required")
		return
	}

	result := h.prices.Compare(ctx, queries)

	resp := compareResponse{
		ComparisonID: result.ComparisonID,
		Results:      make([]compareEntry, 0, len(result.Results)),
	}
	for _, p := range result.Results {
		resp.Results = append(resp.Results, compareEntry{
			Provider:        p.Provider.Display(),
			Identifier:      p.Identifier,
			Region:          p.Region,
			PricePerHourUSD: p.PricePerHourUSD,
			Currency:        p.Currency,
		})
	}
	if len(result.Errors) > 0 {
		resp.Errors = make(map[string]string, len(result.Errors))
		for p, msg := range result.Errors {
			resp.Errors[string(p)] = msg
		}
	}
	if len(resp.Results) > 0 {
		resp.Cheapest = &resp.Results[0]
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListAWSRegions handles GET /api/aws-regions.
func (h *Handler) ListAWSRegions(w http.ResponseWriter, r *http.Request) {
	if h.aws == nil {
		h.writeError(w, http.StatusServiceUnavailable, "AWS catalog not configured")
		return
	}
	regions, err := h.aws.Regions(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"regions": regions})
}

// ListAWSInstances handles GET /api/aws-instances.
func (h *Handler) ListAWSInstances(w http.ResponseWriter, r *http.Request) {
	if h.aws == nil {
		h.writeError(w, http.StatusServiceUnavailable, "AWS catalog not configured")
		return
	}
	region := r.URL.Query().Get("region")
	if region == "" {
		region = h.defaultRegions[pricing.ProviderAWS]
	}
	if region == "" {
		h.writeError(w, http.StatusBadRequest, "missing region parameter")
		return
	}
	types, err := h.aws.InstanceTypes(r.Context(), region)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"instances": types})
}

// ListAzureRegions handles GET /api/azure-regions.
func (h *Handler) ListAzureRegions(w http.ResponseWriter, r *http.Request) {
	if h.azure == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Azure catalog not configured")
		return
	}
	regions, err := h.azure.Regions(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"regions": regions})
}

// ListAzureSKUs handles GET /api/azure-skus.
func (h *Handler) ListAzureSKUs(w http.ResponseWriter, r *http.Request) {
	if h.azure == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Azure catalog not configured")
		return
	}
	region := r.URL.Query().Get("region")
	if region == "" {
		h.writeError(w, http.StatusBadRequest, "missing region parameter")
		return
	}
	sizes, err := h.azure.VMSizes(r.Context(), region)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"skus": sizes})
}

// ListGCPRegions handles GET /api/gcp-regions.
func (h *Handler) ListGCPRegions(w http.ResponseWriter, r *http.Request) {
	if h.gcp == nil {
		h.writeError(w, http.StatusServiceUnavailable, "GCP catalog not configured")
		return
	}
	regions, err := h.gcp.Regions(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"regions": regions})
}

// ListGCPInstances handles GET /api/gcp-instances.
func (h *Handler) ListGCPInstances(w http.ResponseWriter, r *http.Request) {
	if h.gcp == nil {
		h.writeError(w, http.StatusServiceUnavailable, "GCP catalog not configured")
		return
	}
	region := r.URL.Query().Get("region")
	if region == "" {
		region = h.defaultRegions[pricing.ProviderGCP]
	}
	if region == "" {
		h.writeError(w, http.StatusBadRequest, "missing region parameter")
		return
	}
	types, err := h.gcp.MachineTypes(r.Context(), region)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"instances": types})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	apiErr := MapDomainError(err)
	if apiErr.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
	}
	h.writeError(w, apiErr.HTTPStatus, apiErr.Message)
}
