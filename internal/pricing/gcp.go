package pricing

import (
	"context"
	"strings"

	billing "cloud.google.com/go/billing/apiv1"
	"cloud.google.com/go/billing/apiv1/billingpb"
	"github.com/rs/zerolog"
	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/iterator"
)

// computeEngineService is the Cloud Billing catalog ID for Compute Engine.
const computeEngineService = "services/6F81-5844-456A"

// machineTypeCatalog looks up machine type specs for a zone.
type machineTypeCatalog interface {
	GetMachineType(ctx context.Context, project, zone, machineType string) (*compute.MachineType, error)
}

// skuCatalog lists the Compute Engine billing SKUs.
type skuCatalog interface {
	ComputeSkus(ctx context.Context) ([]*billingpb.Sku, error)
}

// GCPResolver prices a machine type from its component resources: it reads
// vCPU and memory specs from the Compute API, finds per-unit rates in the
// billing catalog, and sums the two components.
type GCPResolver struct {
	machines machineTypeCatalog
	skus     skuCatalog
	project  string
	logger   zerolog.Logger
}

// NewGCPResolver creates a GCP resolver for the given project.
func NewGCPResolver(machines machineTypeCatalog, skus skuCatalog, project string, logger zerolog.Logger) *GCPResolver {
	return &GCPResolver{
		machines: machines,
		skus:     skus,
		project:  project,
		logger:   logger.With().Str("component", "gcp_resolver").Logger(),
	}
}

// Resolve implements PriceResolver. The query identifier is a machine type
// name such as n1-standard-4.
func (r *GCPResolver) Resolve(ctx context.Context, q PriceQuery) (*NormalizedPrice, error) {
	region := strings.ToLower(strings.TrimSpace(q.Region))
	machineType := strings.TrimSpace(q.Identifier)

	mt, zone, err := r.findMachineType(ctx, region, machineType)
	if err != nil {
		return nil, err
	}

	vcpus := mt.GuestCpus
	memoryGB := float64(mt.MemoryMb) / 1024

	family := machineFamily(machineType)
	cpuRate, memRate, err := r.componentRates(ctx, family, region)
	if err != nil {
		return nil, &UpstreamError{Provider: ProviderGCP, Err: err}
	}

	// Catalog gaps leave a component rate at zero; fill from the static
	// table so the estimate stays usable.
	fallback := fallbackRatesFor(family)
	if cpuRate == 0 {
		r.logger.Warn().Str("family", family).Msg("no CPU SKU rate, using fallback")
		cpuRate = fallback.CPUPerHour
	}
	if memRate == 0 {
		r.logger.Warn().Str("family", family).Msg("no memory SKU rate, using fallback")
		memRate = fallback.MemoryPerHour
	}

	cpuCost := cpuRate * float64(vcpus)
	memCost := memRate * memoryGB
	total := cpuCost + memCost

	r.logger.Info().
		Str("machine_type", machineType).
		Str("zone", zone).
		Int64("vcpus", vcpus).
		Float64("memory_gb", memoryGB).
		Float64("price", total).
		Msg("resolved GCP price")

	return &NormalizedPrice{
		Provider:        ProviderGCP,
		Identifier:      machineType,
		Region:          region,
		LocationName:    zone,
		PricePerHourUSD: total,
		Currency:        "USD",
		Source: SourceMetadata{
			Unit:      "h",
			PriceType: "OnDemand",
		},
		Specs: &MachineCost{
			VCPUs:             vcpus,
			MemoryGB:          memoryGB,
			CPUCostPerHour:    cpuCost,
			MemoryCostPerHour: memCost,
		},
	}, nil
}

// findMachineType probes the region's first zones until one serves the
// machine type. Machine type availability varies by zone, not region.
func (r *GCPResolver) findMachineType(ctx context.Context, region, machineType string) (*compute.MachineType, string, error) {
	var lastErr error
	for _, suffix := range []string{"a", "b", "c"} {
		zone := region + "-" + suffix
		mt, err := r.machines.GetMachineType(ctx, r.project, zone, machineType)
		if err != nil {
			lastErr = err
			r.logger.Debug().Err(err).Str("zone", zone).Msg("machine type not in zone")
			continue
		}
		return mt, zone, nil
	}
	if lastErr != nil {
		r.logger.Warn().Err(lastErr).Str("machine_type", machineType).Str("region", region).Msg("machine type not found in any zone")
	}
	return nil, "", &MachineSpecNotFoundError{MachineType: machineType, Region: region}
}

// machineFamily extracts the family prefix, e.g. n1 from n1-standard-4.
func machineFamily(machineType string) string {
	if i := strings.Index(machineType, "-"); i > 0 {
		return strings.ToLower(machineType[:i])
	}
	return strings.ToLower(machineType)
}

// componentRates scans the billing catalog for on-demand core and RAM SKUs
// applicable to the region. Generic "Instance Core"/"Instance Ram" and vCPU
// SKUs match any family; family-prefixed core/RAM SKUs match only their own.
// Missing components come back as zero for the caller to substitute.
func (r *GCPResolver) componentRates(ctx context.Context, family, region string) (cpuRate, memRate float64, err error) {
	skus, err := r.skus.ComputeSkus(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, sku := range skus {
		if cpuRate > 0 && memRate > 0 {
			break
		}

		desc := strings.ToLower(sku.Description)
		if strings.Contains(desc, "preemptible") || strings.Contains(desc, "spot") {
			continue
		}
		if !regionApplies(sku.ServiceRegions, region) {
			continue
		}

		forFamily := strings.Contains(desc, family+" ")
		switch {
		case cpuRate == 0 && (strings.Contains(desc, "instance core") || strings.Contains(desc, "vcpu") || (forFamily && strings.Contains(desc, "core"))):
			cpuRate = skuHourlyRate(sku)
		case memRate == 0 && (strings.Contains(desc, "instance ram") || strings.Contains(desc, "memory") || (forFamily && strings.Contains(desc, "ram"))):
			memRate = skuHourlyRate(sku)
		}
	}
	return cpuRate, memRate, nil
}

// regionApplies reports whether a SKU's service regions cover the region.
// An empty list means the SKU is global.
func regionApplies(serviceRegions []string, region string) bool {
	if len(serviceRegions) == 0 {
		return true
	}
	for _, sr := range serviceRegions {
		if sr == "global" || sr == region || strings.Contains(region, sr) || strings.Contains(sr, region) {
			return true
		}
	}
	return false
}

// skuHourlyRate reads the first tiered rate of the SKU's current pricing
// info as a decimal dollar amount.
func skuHourlyRate(sku *billingpb.Sku) float64 {
	for _, info := range sku.PricingInfo {
		expr := info.PricingExpression
		if expr == nil {
			continue
		}
		for _, tier := range expr.TieredRates {
			price := tier.UnitPrice
			if price == nil {
				continue
			}
			rate := float64(price.Units) + float64(price.Nanos)/1e9
			if rate > 0 {
				return rate
			}
		}
	}
	return 0
}

// liveMachineTypeCatalog backs machineTypeCatalog with the Compute API.
type liveMachineTypeCatalog struct {
	svc *compute.Service
}

// NewMachineTypeCatalog wraps a Compute API service.
func NewMachineTypeCatalog(svc *compute.Service) *liveMachineTypeCatalog {
	return &liveMachineTypeCatalog{svc: svc}
}

func (c *liveMachineTypeCatalog) GetMachineType(ctx context.Context, project, zone, machineType string) (*compute.MachineType, error) {
	return c.svc.MachineTypes.Get(project, zone, machineType).Context(ctx).Do()
}

// liveSKUCatalog backs skuCatalog with the Cloud Billing catalog client.
type liveSKUCatalog struct {
	client *billing.CloudCatalogClient
}

// NewSKUCatalog wraps a Cloud Billing catalog client.
func NewSKUCatalog(client *billing.CloudCatalogClient) *liveSKUCatalog {
	return &liveSKUCatalog{client: client}
}

func (c *liveSKUCatalog) ComputeSkus(ctx context.Context) ([]*billingpb.Sku, error) {
	it := c.client.ListSkus(ctx, &billingpb.ListSkusRequest{Parent: computeEngineService})

	var skus []*billingpb.Sku
	for {
		sku, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		skus = append(skus, sku)
	}
	return skus, nil
}
