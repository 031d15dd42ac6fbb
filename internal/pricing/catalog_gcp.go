package pricing

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	compute "google.golang.org/api/compute/v1"
)

// gcpZoneLimit bounds how many zones a machine type listing will walk.
const gcpZoneLimit = 3

// gcpTypesPerZone bounds the page size of each zone's machine type list.
const gcpTypesPerZone = 50

// GCPCatalog lists regions and machine types for the passthrough
// endpoints.
type GCPCatalog struct {
	svc     *compute.Service
	project string
	logger  zerolog.Logger
}

// NewGCPCatalog creates a catalog over a Compute API service.
func NewGCPCatalog(svc *compute.Service, project string, logger zerolog.Logger) *GCPCatalog {
	return &GCPCatalog{
		svc:     svc,
		project: project,
		logger:  logger.With().Str("component", "gcp_catalog").Logger(),
	}
}

// Regions lists the project's region names, sorted.
func (c *GCPCatalog) Regions(ctx context.Context) ([]string, error) {
	list, err := c.svc.Regions.List(c.project).Context(ctx).Do()
	if err != nil {
		return nil, &UpstreamError{Provider: ProviderGCP, Err: err}
	}
	regions := make([]string, 0, len(list.Items))
	for _, r := range list.Items {
		regions = append(regions, r.Name)
	}
	sort.Strings(regions)
	return regions, nil
}

// MachineTypes lists the machine types served in a region, deduplicated
// across its first zones and sorted. Zone walking is capped because zones
// within a region serve near-identical type sets.
func (c *GCPCatalog) MachineTypes(ctx context.Context, region string) ([]string, error) {
	zones := c.regionZones(ctx, region)

	seen := make(map[string]struct{})
	var lastErr error
	anyZone := false
	for _, zone := range zones {
		list, err := c.svc.MachineTypes.List(c.project, zone).MaxResults(gcpTypesPerZone).Context(ctx).Do()
		if err != nil {
			lastErr = err
			c.logger.Debug().Err(err).Str("zone", zone).Msg("machine type listing failed for zone")
			continue
		}
		anyZone = true
		for _, mt := range list.Items {
			seen[mt.Name] = struct{}{}
		}
	}
	if !anyZone && lastErr != nil {
		return nil, &UpstreamError{Provider: ProviderGCP, Err: lastErr}
	}

	types := make([]string, 0, len(seen))
	for name := range seen {
		types = append(types, name)
	}
	sort.Strings(types)
	return types, nil
}

// regionZones returns up to gcpZoneLimit zone names for the region,
// synthesizing the conventional -a/-b/-c suffixes when the region lookup
// fails or lists nothing.
func (c *GCPCatalog) regionZones(ctx context.Context, region string) []string {
	r, err := c.svc.Regions.Get(c.project, region).Context(ctx).Do()
	if err != nil || len(r.Zones) == 0 {
		if err != nil {
			c.logger.Debug().Err(err).Str("region", region).Msg("region lookup failed, synthesizing zones")
		}
		return []string{region + "-a", region + "-b", region + "-c"}
	}

	zones := make([]string, 0, gcpZoneLimit)
	for _, zoneURL := range r.Zones {
		if len(zones) == gcpZoneLimit {
			break
		}
		// Zone entries are full resource URLs; the name is the last segment.
		if i := strings.LastIndex(zoneURL, "/"); i >= 0 {
			zones = append(zones, zoneURL[i+1:])
		} else {
			zones = append(zones, zoneURL)
		}
	}
	return zones
}
