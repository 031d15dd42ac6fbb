package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/cloudprice/cloudprice/internal/metrics"
)

type stubResolver struct {
	price *NormalizedPrice
	err   error
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context, q PriceQuery) (*NormalizedPrice, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.price, nil
}

func newTestService(ttl time.Duration) *Service {
	m := metrics.New(prometheus.NewRegistry())
	return NewService(NewCache(), ttl, m, zerolog.Nop())
}

func TestServiceResolvePriceCachesWithinTTL(t *testing.T) {
	svc := newTestService(time.Minute)
	stub := &stubResolver{price: testPrice(ProviderAWS, "t3.micro")}
	svc.Register(ProviderAWS, stub)

	q := PriceQuery{Provider: ProviderAWS, Identifier: "t3.micro", Region: "us-east-1"}
	for i := 0; i < 3; i++ {
		price, err := svc.ResolvePrice(context.Background(), q)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if price.PricePerHourUSD != 0.0104 {
			t.Errorf("got price %f, want 0.0104", price.PricePerHourUSD)
		}
	}
	if stub.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", stub.calls)
	}
}

func TestServiceResolvePriceRefetchesAfterExpiry(t *testing.T) {
	svc := newTestService(10 * time.Millisecond)
	stub := &stubResolver{price: testPrice(ProviderAWS, "t3.micro")}
	svc.Register(ProviderAWS, stub)

	q := PriceQuery{Provider: ProviderAWS, Identifier: "t3.micro", Region: "us-east-1"}
	if _, err := svc.ResolvePrice(context.Background(), q); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if _, err := svc.ResolvePrice(context.Background(), q); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected refetch after TTL, got %d calls", stub.calls)
	}
}

func TestServiceResolvePriceValidation(t *testing.T) {
	svc := newTestService(time.Minute)
	stub := &stubResolver{price: testPrice(ProviderAWS, "t3.micro")}
	svc.Register(ProviderAWS, stub)

	tests := []struct {
		name  string
		query PriceQuery
	}{
		{"missing identifier", PriceQuery{Provider: ProviderAWS, Region: "us-east-1"}},
		{"missing region", PriceQuery{Provider: ProviderAWS, Identifier: "t3.micro"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ResolvePrice(context.Background(), tt.query)
			if !errors.Is(err, ErrMissingParameter) {
				t.Fatalf("expected ErrMissingParameter, got %v", err)
			}
		})
	}
	if stub.calls != 0 {
		t.Errorf("validation failures must not reach the resolver, got %d calls", stub.calls)
	}
}

func TestServiceResolvePriceIgnoresDefaultRegion(t *testing.T) {
	svc := newTestService(time.Minute)
	stub := &stubResolver{price: testPrice(ProviderAWS, "t3.micro")}
	svc.Register(ProviderAWS, stub)
	svc.SetDefaultRegion(ProviderAWS, "us-east-1")

	// Defaults only apply to comparisons; a single lookup without a
	// region is a client error and never reaches the resolver.
	_, err := svc.ResolvePrice(context.Background(), PriceQuery{
		Provider:   ProviderAWS,
		Identifier: "t3.micro",
	})
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("expected no upstream calls, got %d", stub.calls)
	}
}

func TestServiceResolvePriceUnsupportedProvider(t *testing.T) {
	svc := newTestService(time.Minute)

	_, err := svc.ResolvePrice(context.Background(), PriceQuery{
		Provider:   ProviderGCP,
		Identifier: "n1-standard-1",
		Region:     "us-central1",
	})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestServiceResolvePriceDoesNotCacheFailures(t *testing.T) {
	svc := newTestService(time.Minute)
	stub := &stubResolver{err: &NoPricingDataError{Provider: ProviderAWS, Identifier: "t3.micro", Region: "us-east-1"}}
	svc.Register(ProviderAWS, stub)

	q := PriceQuery{Provider: ProviderAWS, Identifier: "t3.micro", Region: "us-east-1"}
	for i := 0; i < 2; i++ {
		if _, err := svc.ResolvePrice(context.Background(), q); !errors.Is(err, ErrNoPricingData) {
			t.Fatalf("expected ErrNoPricingData, got %v", err)
		}
	}
	if stub.calls != 2 {
		t.Errorf("failures must not be cached, got %d calls", stub.calls)
	}
}

func TestServiceProviders(t *testing.T) {
	svc := newTestService(time.Minute)
	svc.Register(ProviderGCP, &stubResolver{})
	svc.Register(ProviderAWS, &stubResolver{})

	got := svc.Providers()
	if len(got) != 2 || got[0] != ProviderAWS || got[1] != ProviderGCP {
		t.Errorf("got %v, want [aws gcp]", got)
	}
}
