package pricing

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/rs/zerolog"
)

// ec2API is the slice of the EC2 API the catalog needs. *ec2.Client
// satisfies it.
type ec2API interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeInstanceTypeOfferings(ctx context.Context, params *ec2.DescribeInstanceTypeOfferingsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceTypeOfferingsOutput, error)
}

// AWSCatalog lists regions and instance type offerings for the UI
// passthrough endpoints.
type AWSCatalog struct {
	ec2    ec2API
	logger zerolog.Logger
}

// NewAWSCatalog creates a catalog over an EC2 API client.
func NewAWSCatalog(client ec2API, logger zerolog.Logger) *AWSCatalog {
	return &AWSCatalog{
		ec2:    client,
		logger: logger.With().Str("component", "aws_catalog").Logger(),
	}
}

// Regions lists the enabled region codes, sorted.
func (c *AWSCatalog) Regions(ctx context.Context) ([]string, error) {
	out, err := c.ec2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, &UpstreamError{Provider: ProviderAWS, Err: err}
	}
	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		regions = append(regions, aws.ToString(r.RegionName))
	}
	sort.Strings(regions)
	return regions, nil
}

// InstanceTypes lists the instance types offered in a region, sorted.
func (c *AWSCatalog) InstanceTypes(ctx context.Context, region string) ([]string, error) {
	var types []string
	var nextToken *string
	for {
		out, err := c.ec2.DescribeInstanceTypeOfferings(ctx, &ec2.DescribeInstanceTypeOfferingsInput{
			LocationType: ec2types.LocationTypeRegion,
			Filters: []ec2types.Filter{{
				Name:   aws.String("location"),
				Values: []string{region},
			}},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, &UpstreamError{Provider: ProviderAWS, Err: err}
		}
		for _, o := range out.InstanceTypeOfferings {
			types = append(types, string(o.InstanceType))
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	sort.Strings(types)
	return types, nil
}

// NewAWSClients builds the Pricing and EC2 clients. Static credentials are
// used when provided, otherwise the default chain applies. The Price List
// API is only served from us-east-1, so the pricing client is pinned there
// regardless of the working region.
func NewAWSClients(ctx context.Context, region, accessKeyID, secretAccessKey string) (*pricing.Client, *ec2.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}

	pricingClient := pricing.NewFromConfig(cfg, func(o *pricing.Options) {
		o.Region = "us-east-1"
	})
	return pricingClient, ec2.NewFromConfig(cfg), nil
}
