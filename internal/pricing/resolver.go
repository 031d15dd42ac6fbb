package pricing

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudprice/cloudprice/internal/metrics"
)

// Service fronts the per-provider resolvers with validation and a shared
// TTL cache. It is the only entry point the API layer uses for prices.
type Service struct {
	resolvers      map[Provider]PriceResolver
	defaultRegions map[Provider]string
	cache          *Cache
	ttl            time.Duration
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// NewService creates an empty façade. Resolvers are attached with Register.
func NewService(cache *Cache, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		resolvers:      make(map[Provider]PriceResolver),
		defaultRegions: make(map[Provider]string),
		cache:          cache,
		ttl:            ttl,
		metrics:        m,
		logger:         logger.With().Str("component", "price_service").Logger(),
	}
}

// Register attaches a resolver for a provider, replacing any previous one.
func (s *Service) Register(p Provider, r PriceResolver) {
	s.resolvers[p] = r
}

// SetDefaultRegion sets the region Compare substitutes when a query leaves
// it empty. Single lookups never default: a missing region is the caller's
// error.
func (s *Service) SetDefaultRegion(p Provider, region string) {
	if region != "" {
		s.defaultRegions[p] = region
	}
}

// Providers returns the registered providers in stable order.
func (s *Service) Providers() []Provider {
	out := make([]Provider, 0, len(s.resolvers))
	for p := range s.resolvers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// identifierParam names the missing identifier the way each provider's
// endpoint does.
func identifierParam(p Provider) string {
	switch p {
	case ProviderAzure:
		return "skuName"
	default:
		return "instanceType"
	}
}

// ResolvePrice validates the query, serves it from cache when possible,
// and otherwise dispatches to the provider's resolver. Successful
// resolutions are cached for the service-wide TTL.
func (s *Service) ResolvePrice(ctx context.Context, q PriceQuery) (*NormalizedPrice, error) {
	if q.Identifier == "" {
		return nil, &MissingParameterError{Name: identifierParam(q.Provider)}
	}
	if q.Region == "" {
		return nil, &MissingParameterError{Name: "region"}
	}

	resolver, ok := s.resolvers[q.Provider]
	if !ok {
		return nil, &UnsupportedProviderError{Provider: string(q.Provider)}
	}

	key := CacheKey(q.Provider, q.Identifier, q.Region)
	if cached, hit := s.cache.Get(key); hit {
		s.metrics.RecordCacheHit()
		s.logger.Debug().Str("key", key).Msg("cache hit")
		return cached, nil
	}
	s.metrics.RecordCacheMiss()

	start := time.Now()
	price, err := resolver.Resolve(ctx, q)
	s.metrics.RecordResolution(string(q.Provider), resolutionOutcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, price, s.ttl)
	return price, nil
}

func resolutionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoPricingData), errors.Is(err, ErrMachineSpecNotFound):
		return "not_found"
	default:
		return "error"
	}
}
