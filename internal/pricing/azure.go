package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// azureRetailPricesURL is the public, unauthenticated retail price feed.
const azureRetailPricesURL = "https://prices.azure.com/api/retail/prices"

// azureMaxPages bounds how many feed pages a single resolution will walk.
const azureMaxPages = 20

// AzureResolver resolves VM prices from the Azure Retail Prices API. The
// feed needs no credentials, so the resolver talks plain HTTP rather than
// going through the ARM SDK.
type AzureResolver struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewAzureResolver creates a resolver against the public retail price feed.
func NewAzureResolver(logger zerolog.Logger) *AzureResolver {
	return &AzureResolver{
		baseURL: azureRetailPricesURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "azure_resolver").Logger(),
	}
}

// NewAzureResolverWithClient is used by tests to point the resolver at a
// local server.
func NewAzureResolverWithClient(baseURL string, client *http.Client, logger zerolog.Logger) *AzureResolver {
	return &AzureResolver{
		baseURL: baseURL,
		client:  client,
		logger:  logger.With().Str("component", "azure_resolver").Logger(),
	}
}

type azureRetailPrice struct {
	CurrencyCode  string  `json:"currencyCode"`
	RetailPrice   float64 `json:"retailPrice"`
	UnitOfMeasure string  `json:"unitOfMeasure"`
	ArmRegionName string  `json:"armRegionName"`
	Location      string  `json:"location"`
	ProductName   string  `json:"productName"`
	SkuName       string  `json:"skuName"`
	MeterName     string  `json:"meterName"`
	ArmSkuName    string  `json:"armSkuName"`
	PriceType     string  `json:"priceType"`
}

type azureRetailPage struct {
	Items        []azureRetailPrice `json:"Items"`
	NextPageLink string             `json:"NextPageLink"`
}

// Resolve implements PriceResolver. The query identifier is the ARM SKU
// name (e.g. Standard_D2s_v3) and OSHint selects between the Windows and
// non-Windows meters for the same SKU.
func (r *AzureResolver) Resolve(ctx context.Context, q PriceQuery) (*NormalizedPrice, error) {
	// ARM region names carry no whitespace, so "East US" becomes "eastus".
	region := strings.Join(strings.Fields(strings.ToLower(q.Region)), "")
	sku := strings.TrimSpace(q.Identifier)
	osHint := strings.ToLower(strings.TrimSpace(q.OSHint))

	filter := fmt.Sprintf("serviceName eq 'Virtual Machines' and armRegionName eq '%s' and armSkuName eq '%s'", region, sku)
	wantWindows := osHint == "windows"

	pick, rows, err := r.scanPages(ctx, filter, wantWindows)
	if err != nil {
		return nil, &UpstreamError{Provider: ProviderAzure, Err: err}
	}
	tier := 1
	if pick == nil && len(rows) == 0 {
		return nil, &NoPricingDataError{
			Provider:   ProviderAzure,
			Identifier: sku,
			Region:     region,
			Detail:     "no retail price rows returned",
		}
	}

	if pick == nil {
		pick, tier = selectAzureFallback(rows)
	}
	if pick == nil || pick.RetailPrice <= 0 {
		return nil, &NoPricingDataError{
			Provider:   ProviderAzure,
			Identifier: sku,
			Region:     region,
			Detail:     "no price found",
		}
	}

	r.logger.Info().
		Str("sku", sku).
		Str("region", region).
		Str("os", osHint).
		Int("tier", tier).
		Float64("price", pick.RetailPrice).
		Msg("resolved Azure price")

	return &NormalizedPrice{
		Provider:        ProviderAzure,
		Identifier:      sku,
		Region:          region,
		LocationName:    pick.Location,
		PricePerHourUSD: pick.RetailPrice,
		Currency:        pick.CurrencyCode,
		Source: SourceMetadata{
			Unit:        pick.UnitOfMeasure,
			PriceType:   pick.PriceType,
			ProductName: pick.ProductName,
			MeterName:   pick.MeterName,
		},
	}, nil
}

// scanPages walks the retail price feed pages for one filter, up to the
// page cap. A row satisfying the full criteria short-circuits the walk;
// otherwise every fetched row is accumulated for fallback selection.
func (r *AzureResolver) scanPages(ctx context.Context, filter string, wantWindows bool) (*azureRetailPrice, []azureRetailPrice, error) {
	var rows []azureRetailPrice

	next := r.baseURL + "?$filter=" + url.QueryEscape(filter)
	for page := 0; next != "" && page < azureMaxPages; page++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, nil, fmt.Errorf("retail prices API returned status %d", resp.StatusCode)
		}

		var body azureRetailPage
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("decoding retail prices page: %w", err)
		}

		for i := range body.Items {
			row := &body.Items[i]
			if azureQuickPick(row) && azureOSMatch(row, wantWindows) {
				return row, nil, nil
			}
		}
		rows = append(rows, body.Items...)
		next = body.NextPageLink
	}
	return nil, rows, nil
}

// selectAzureFallback relaxes the criteria one step at a time over the
// accumulated rows: OS-agnostic consumption, then any positive hourly
// rate, then the first row at all. Returns the winning tier for logging.
func selectAzureFallback(rows []azureRetailPrice) (*azureRetailPrice, int) {
	for i := range rows {
		row := &rows[i]
		if azureQuickPick(row) {
			return row, 2
		}
	}
	for i := range rows {
		row := &rows[i]
		if azureHourly(row) && row.RetailPrice > 0 {
			return row, 3
		}
	}
	if len(rows) > 0 {
		return &rows[0], 4
	}
	return nil, 0
}

func azureQuickPick(row *azureRetailPrice) bool {
	return strings.EqualFold(row.PriceType, "Consumption") &&
		azureHourly(row) &&
		row.RetailPrice > 0 &&
		!azureIsSpot(row)
}

func azureHourly(row *azureRetailPrice) bool {
	return strings.Contains(strings.ToLower(row.UnitOfMeasure), "hour")
}

// azureIsSpot filters out spot and low-priority meters, which share SKU
// names with on-demand rows.
func azureIsSpot(row *azureRetailPrice) bool {
	haystack := strings.ToLower(row.SkuName + " " + row.MeterName + " " + row.ProductName)
	return strings.Contains(haystack, "spot") || strings.Contains(haystack, "low priority")
}

// azureOSMatch checks every name field: some rows only flag Windows in the
// meter or SKU name rather than the product name.
func azureOSMatch(row *azureRetailPrice, wantWindows bool) bool {
	haystack := strings.ToLower(row.ProductName + " " + row.SkuName + " " + row.MeterName)
	isWindows := strings.Contains(haystack, "windows")
	return isWindows == wantWindows
}
