// Package pricing provides the AWS price resolver.
package pricing

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/rs/zerolog"
)

// awsPriceTTL is how long a successfully resolved AWS price stays cached
// inside the resolver, independent of the service-wide cache TTL.
const awsPriceTTL = time.Hour

// productCatalog is the slice of the AWS Pricing API the resolver needs.
// *pricing.Client satisfies it.
type productCatalog interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// AWSResolver resolves EC2 on-demand prices from the AWS Price List API by
// trying filter sets of descending specificity until one yields a valid
// hourly price row.
type AWSResolver struct {
	catalog productCatalog
	cache   *Cache
	logger  zerolog.Logger
}

// NewAWSResolver creates an AWS resolver backed by the given product catalog.
func NewAWSResolver(catalog productCatalog, cache *Cache, logger zerolog.Logger) *AWSResolver {
	return &AWSResolver{
		catalog: catalog,
		cache:   cache,
		logger:  logger.With().Str("component", "aws_resolver").Logger(),
	}
}

// awsLocationNames maps AWS region codes to the display names the Price
// List API filters on. Unmapped codes pass through verbatim.
var awsLocationNames = map[string]string{
	// US
	"us-east-1": "US East (N. Virginia)",
	"us-east-2": "US East (Ohio)",
	"us-west-1": "US West (N. California)",
	"us-west-2": "US West (Oregon)",

	// Asia Pacific
	"ap-south-1":     "Asia Pacific (Mumbai)",
	"ap-south-2":     "Asia Pacific (Hyderabad)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-southeast-2": "Asia Pacific (Sydney)",
	"ap-southeast-3": "Asia Pacific (Jakarta)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
	"ap-northeast-2": "Asia Pacific (Seoul)",
	"ap-northeast-3": "Asia Pacific (Osaka)",
	"ap-east-1":      "Asia Pacific (Hong Kong)",

	// Europe
	"eu-west-1":    "EU (Ireland)",
	"eu-west-2":    "EU (London)",
	"eu-west-3":    "EU (Paris)",
	"eu-central-1": "EU (Frankfurt)",
	"eu-central-2": "EU (Zurich)",
	"eu-north-1":   "EU (Stockholm)",
	"eu-south-1":   "EU (Milan)",
	"eu-south-2":   "EU (Spain)",

	// South America
	"sa-east-1": "South America (Sao Paulo)",

	// Canada
	"ca-central-1": "Canada (Central)",
	"ca-west-1":    "Canada (Calgary)",

	// Middle East
	"me-south-1":   "Middle East (Bahrain)",
	"me-central-1": "Middle East (UAE)",

	// Africa
	"af-south-1": "Africa (Cape Town)",

	// China
	"cn-north-1":     "China (Beijing)",
	"cn-northwest-1": "China (Ningxia)",

	// GovCloud
	"us-gov-east-1": "AWS GovCloud (US-East)",
	"us-gov-west-1": "AWS GovCloud (US-West)",
}

// LocationName resolves a region code to the Price List display name.
func (r *AWSResolver) LocationName(region string) string {
	if loc, ok := awsLocationNames[region]; ok {
		return loc
	}
	r.logger.Warn().Str("region", region).Msg("region not in location table, using verbatim")
	return region
}

// filterTiers returns the ordered filter sets, most specific first. Earlier
// tiers pin down OS and tenancy; later ones relax constraints so unusual
// instance types still resolve to something.
func filterTiers(instanceType, location string) [][]pricingtypes.Filter {
	term := func(field, value string) pricingtypes.Filter {
		return pricingtypes.Filter{
			Type:  pricingtypes.FilterTypeTermMatch,
			Field: aws.String(field),
			Value: aws.String(value),
		}
	}
	base := []pricingtypes.Filter{
		term("instanceType", instanceType),
		term("location", location),
	}
	return [][]pricingtypes.Filter{
		append(append([]pricingtypes.Filter{}, base...),
			term("productFamily", "Compute Instance"),
			term("tenancy", "Shared"),
			term("operating-system", "Linux"),
		),
		append(append([]pricingtypes.Filter{}, base...),
			term("productFamily", "Compute Instance"),
			term("tenancy", "Shared"),
		),
		append(append([]pricingtypes.Filter{}, base...),
			term("productFamily", "Compute Instance"),
		),
		base,
	}
}

// Resolve implements PriceResolver.
func (r *AWSResolver) Resolve(ctx context.Context, q PriceQuery) (*NormalizedPrice, error) {
	location := r.LocationName(q.Region)

	key := "aws:pricelist:" + strings.ToLower(q.Identifier) + ":" + strings.ToLower(location)
	if cached, ok := r.cache.Get(key); ok {
		r.logger.Debug().Str("instance_type", q.Identifier).Str("location", location).Msg("price cache hit")
		return cached, nil
	}

	tiers := filterTiers(q.Identifier, location)

	var lastErr error
	anyResponse := false

	for i, filters := range tiers {
		out, err := r.catalog.GetProducts(ctx, &pricing.GetProductsInput{
			ServiceCode: aws.String("AmazonEC2"),
			Filters:     filters,
			MaxResults:  aws.Int32(20),
		})
		if err != nil {
			lastErr = err
			r.logger.Warn().Err(err).Int("tier", i+1).Msg("price list query failed, trying next tier")
			continue
		}
		anyResponse = true

		if len(out.PriceList) == 0 {
			r.logger.Debug().Int("tier", i+1).Msg("no products for tier")
			continue
		}

		for _, doc := range out.PriceList {
			price, unit, ok := extractHourlyPrice(doc)
			if !ok {
				continue
			}

			r.logger.Info().
				Str("instance_type", q.Identifier).
				Str("location", location).
				Int("tier", i+1).
				Float64("price", price).
				Msg("resolved AWS price")

			np := &NormalizedPrice{
				Provider:        ProviderAWS,
				Identifier:      q.Identifier,
				Region:          q.Region,
				LocationName:    location,
				PricePerHourUSD: price,
				Currency:        "USD",
				Source: SourceMetadata{
					Unit:      unit,
					PriceType: "OnDemand",
				},
			}
			r.cache.Set(key, np, awsPriceTTL)
			return np, nil
		}
	}

	if !anyResponse && lastErr != nil {
		return nil, &UpstreamError{Provider: ProviderAWS, Err: lastErr}
	}
	return nil, &NoPricingDataError{Provider: ProviderAWS, Identifier: q.Identifier, Region: q.Region}
}

// Price List documents nest on-demand terms two map levels deep.
type priceListDocument struct {
	Terms struct {
		OnDemand map[string]priceListTerm `json:"OnDemand"`
	} `json:"terms"`
}

type priceListTerm struct {
	PriceDimensions map[string]priceListDimension `json:"priceDimensions"`
}

type priceListDimension struct {
	Unit         string            `json:"unit"`
	PricePerUnit map[string]string `json:"pricePerUnit"`
}

// extractHourlyPrice scans a Price List JSON document for the first
// on-demand dimension with an hourly-equivalent unit and a finite positive
// USD price. Documents that fail to parse are skipped.
func extractHourlyPrice(doc string) (float64, string, bool) {
	var parsed priceListDocument
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return 0, "", false
	}
	for _, term := range parsed.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			if !isHourlyUnit(dim.Unit) {
				continue
			}
			usd, ok := dim.PricePerUnit["USD"]
			if !ok {
				continue
			}
			price, err := strconv.ParseFloat(usd, 64)
			// ParseFloat accepts "Inf" and "NaN", neither is a price.
			if err != nil || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
				continue
			}
			return price, dim.Unit, true
		}
	}
	return 0, "", false
}

func isHourlyUnit(unit string) bool {
	u := strings.ToLower(unit)
	return u == "hrs" || strings.Contains(u, "hour") || u == "quantity"
}
