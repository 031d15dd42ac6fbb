package pricing

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// CompareResult is a cross-provider price comparison. Providers that fail
// to resolve are reported in Errors without blocking the rest.
type CompareResult struct {
	ComparisonID string
	Results      []*NormalizedPrice // sorted cheapest first
	Errors       map[Provider]string
}

// Cheapest returns the lowest-priced result, or nil when nothing resolved.
func (c *CompareResult) Cheapest() *NormalizedPrice {
	if len(c.Results) == 0 {
		return nil
	}
	return c.Results[0]
}

// Compare resolves each query concurrently and aggregates the outcomes.
// One failing provider never fails the comparison. Queries without a region
// fall back to the provider's configured default.
func (s *Service) Compare(ctx context.Context, queries []PriceQuery) *CompareResult {
	result := &CompareResult{
		ComparisonID: uuid.NewString(),
		Errors:       make(map[Provider]string),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, q := range queries {
		if q.Region == "" {
			q.Region = s.defaultRegions[q.Provider]
		}
		wg.Add(1)
		go func(q PriceQuery) {
			defer wg.Done()
			price, err := s.ResolvePrice(ctx, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[q.Provider] = err.Error()
				return
			}
			result.Results = append(result.Results, price)
		}(q)
	}
	wg.Wait()

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].PricePerHourUSD < result.Results[j].PricePerHourUSD
	})

	s.logger.Info().
		Str("comparison_id", result.ComparisonID).
		Int("resolved", len(result.Results)).
		Int("failed", len(result.Errors)).
		Msg("completed price comparison")

	return result
}
