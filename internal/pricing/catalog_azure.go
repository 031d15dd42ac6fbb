package pricing

import (
	"context"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/subscription/armsubscription"
	"github.com/rs/zerolog"
)

// AzureCatalog lists subscription locations and VM sizes for the
// passthrough endpoints. Unlike the price feed, these are ARM calls and
// need credentials.
type AzureCatalog struct {
	subscriptionID string
	subscriptions  *armsubscription.SubscriptionsClient
	vmSizes        *armcompute.VirtualMachineSizesClient
	logger         zerolog.Logger
}

// NewAzureCatalog builds the ARM clients for one subscription.
func NewAzureCatalog(subscriptionID string, cred azcore.TokenCredential, logger zerolog.Logger) (*AzureCatalog, error) {
	subs, err := armsubscription.NewSubscriptionsClient(cred, nil)
	if err != nil {
		return nil, err
	}
	sizes, err := armcompute.NewVirtualMachineSizesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}
	return &AzureCatalog{
		subscriptionID: subscriptionID,
		subscriptions:  subs,
		vmSizes:        sizes,
		logger:         logger.With().Str("component", "azure_catalog").Logger(),
	}, nil
}

// Regions lists the subscription's location names (eastus style), sorted.
func (c *AzureCatalog) Regions(ctx context.Context) ([]string, error) {
	var regions []string
	pager := c.subscriptions.NewListLocationsPager(c.subscriptionID, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &UpstreamError{Provider: ProviderAzure, Err: err}
		}
		for _, loc := range page.Value {
			if loc.Name != nil {
				regions = append(regions, *loc.Name)
			}
		}
	}
	sort.Strings(regions)
	return regions, nil
}

// VMSizes lists the VM size names available in a region, deduplicated and
// sorted. The sizes API repeats names across hardware generations.
func (c *AzureCatalog) VMSizes(ctx context.Context, region string) ([]string, error) {
	seen := make(map[string]struct{})
	pager := c.vmSizes.NewListPager(region, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &UpstreamError{Provider: ProviderAzure, Err: err}
		}
		for _, size := range page.Value {
			if size.Name != nil {
				seen[*size.Name] = struct{}{}
			}
		}
	}

	sizes := make([]string, 0, len(seen))
	for name := range seen {
		sizes = append(sizes, name)
	}
	sort.Strings(sizes)
	return sizes, nil
}

// NewAzureCredential prefers an explicit service principal and falls back
// to the default chain (environment, managed identity, CLI).
func NewAzureCredential(tenantID, clientID, clientSecret string) (azcore.TokenCredential, error) {
	if tenantID != "" && clientID != "" && clientSecret != "" {
		return azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	}
	return azidentity.NewDefaultAzureCredential(nil)
}
