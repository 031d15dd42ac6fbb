package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func azureTestServer(t *testing.T, pages ...azureRetailPage) (*AzureResolver, *int) {
	t.Helper()
	requests := 0

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := requests
		requests++
		if page >= len(pages) {
			t.Errorf("unexpected request %d", page)
			http.Error(w, "no more pages", http.StatusInternalServerError)
			return
		}
		body := pages[page]
		if body.NextPageLink != "" {
			body.NextPageLink = srv.URL + body.NextPageLink
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	r := NewAzureResolverWithClient(srv.URL, srv.Client(), zerolog.Nop())
	return r, &requests
}

func linuxRow(price float64) azureRetailPrice {
	return azureRetailPrice{
		CurrencyCode:  "USD",
		RetailPrice:   price,
		UnitOfMeasure: "1 Hour",
		ArmRegionName: "eastus",
		Location:      "US East",
		ProductName:   "Virtual Machines Dsv3 Series",
		SkuName:       "D2s v3",
		MeterName:     "D2s v3",
		ArmSkuName:    "Standard_D2s_v3",
		PriceType:     "Consumption",
	}
}

func windowsRow(price float64) azureRetailPrice {
	row := linuxRow(price)
	row.ProductName = "Virtual Machines Dsv3 Series Windows"
	return row
}

func spotRow(price float64) azureRetailPrice {
	row := linuxRow(price)
	row.SkuName = "D2s v3 Spot"
	row.MeterName = "D2s v3 Spot"
	return row
}

func TestAzureResolvePicksOSMatch(t *testing.T) {
	tests := []struct {
		name string
		os   string
		want float64
	}{
		{"linux picks non-windows meter", "linux", 0.096},
		{"windows picks windows meter", "windows", 0.188},
		{"empty hint behaves as linux", "", 0.096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := azureTestServer(t, azureRetailPage{
				Items: []azureRetailPrice{windowsRow(0.188), linuxRow(0.096)},
			})

			price, err := r.Resolve(context.Background(), PriceQuery{
				Provider:   ProviderAzure,
				Identifier: "Standard_D2s_v3",
				Region:     "eastus",
				OSHint:     tt.os,
			})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if price.PricePerHourUSD != tt.want {
				t.Errorf("got price %f, want %f", price.PricePerHourUSD, tt.want)
			}
		})
	}
}

func TestAzureResolveOSMatchScansAllNameFields(t *testing.T) {
	// Some feed rows only flag Windows in the meter name.
	meterOnly := linuxRow(0.188)
	meterOnly.MeterName = "D2s v3 Windows"

	tests := []struct {
		name string
		os   string
		want float64
	}{
		{"windows matches meter name", "windows", 0.188},
		{"linux skips windows meter", "linux", 0.096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := azureTestServer(t, azureRetailPage{
				Items: []azureRetailPrice{meterOnly, linuxRow(0.096)},
			})

			price, err := r.Resolve(context.Background(), PriceQuery{
				Provider:   ProviderAzure,
				Identifier: "Standard_D2s_v3",
				Region:     "eastus",
				OSHint:     tt.os,
			})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if price.PricePerHourUSD != tt.want {
				t.Errorf("got price %f, want %f", price.PricePerHourUSD, tt.want)
			}
		})
	}
}

func TestAzureResolveNormalizesRegion(t *testing.T) {
	var gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("$filter")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(azureRetailPage{Items: []azureRetailPrice{linuxRow(0.096)}})
	}))
	defer srv.Close()

	r := NewAzureResolverWithClient(srv.URL, srv.Client(), zerolog.Nop())
	price, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_D2s_v3",
		Region:     " East US ",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if price.Region != "eastus" {
		t.Errorf("got region %q, want eastus", price.Region)
	}
	if !strings.Contains(gotFilter, "armRegionName eq 'eastus'") {
		t.Errorf("filter %q does not target eastus", gotFilter)
	}
}

func TestAzureResolveSkipsSpotRows(t *testing.T) {
	r, _ := azureTestServer(t, azureRetailPage{
		Items: []azureRetailPrice{spotRow(0.012), linuxRow(0.096)},
	})

	price, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_D2s_v3",
		Region:     "eastus",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if price.PricePerHourUSD != 0.096 {
		t.Errorf("got price %f, want spot skipped and 0.096 picked", price.PricePerHourUSD)
	}
}

func TestAzureResolveQuickPickStopsPaging(t *testing.T) {
	r, requests := azureTestServer(t,
		azureRetailPage{Items: []azureRetailPrice{linuxRow(0.096)}, NextPageLink: "/page2"},
		azureRetailPage{Items: []azureRetailPrice{linuxRow(0.999)}},
	)

	price, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_D2s_v3",
		Region:     "eastus",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if price.PricePerHourUSD != 0.096 {
		t.Errorf("got price %f, want 0.096", price.PricePerHourUSD)
	}
	if *requests != 1 {
		t.Errorf("expected quick pick to stop after 1 page, fetched %d", *requests)
	}
}

func TestAzureResolveFollowsNextPageLink(t *testing.T) {
	// Page 1 has only a spot row, the real price is on page 2.
	r, requests := azureTestServer(t,
		azureRetailPage{Items: []azureRetailPrice{spotRow(0.012)}, NextPageLink: "/page2"},
		azureRetailPage{Items: []azureRetailPrice{linuxRow(0.096)}},
	)

	price, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_D2s_v3",
		Region:     "eastus",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if price.PricePerHourUSD != 0.096 {
		t.Errorf("got price %f, want 0.096", price.PricePerHourUSD)
	}
	if *requests != 2 {
		t.Errorf("expected 2 pages fetched, got %d", *requests)
	}
}

func TestAzureResolveOSAgnosticFallback(t *testing.T) {
	// Only a Windows meter exists; a linux query should still resolve.
	r, _ := azureTestServer(t, azureRetailPage{
		Items: []azureRetailPrice{windowsRow(0.188)},
	})

	price, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_D2s_v3",
		Region:     "eastus",
		OSHint:     "linux",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if price.PricePerHourUSD != 0.188 {
		t.Errorf("got price %f, want OS-agnostic fallback 0.188", price.PricePerHourUSD)
	}
}

func TestAzureResolveNoRows(t *testing.T) {
	r, _ := azureTestServer(t, azureRetailPage{})

	_, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_Nonexistent",
		Region:     "eastus",
	})
	if !errors.Is(err, ErrNoPricingData) {
		t.Fatalf("expected ErrNoPricingData, got %v", err)
	}
	var npd *NoPricingDataError
	if !errors.As(err, &npd) || npd.Detail != "no retail price rows returned" {
		t.Errorf("unexpected error detail: %v", err)
	}
}

func TestAzureResolveOnlyZeroPriceRows(t *testing.T) {
	r, _ := azureTestServer(t, azureRetailPage{
		Items: []azureRetailPrice{linuxRow(0)},
	})

	_, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_D2s_v3",
		Region:     "eastus",
	})
	if !errors.Is(err, ErrNoPricingData) {
		t.Fatalf("expected ErrNoPricingData, got %v", err)
	}
	var npd *NoPricingDataError
	if !errors.As(err, &npd) || npd.Detail != "no price found" {
		t.Errorf("unexpected error detail: %v", err)
	}
}

func TestAzureResolveUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewAzureResolverWithClient(srv.URL, srv.Client(), zerolog.Nop())
	_, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_D2s_v3",
		Region:     "eastus",
	})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestAzureResolveCarriesSourceMetadata(t *testing.T) {
	r, _ := azureTestServer(t, azureRetailPage{
		Items: []azureRetailPrice{linuxRow(0.096)},
	})

	price, err := r.Resolve(context.Background(), PriceQuery{
		Provider:   ProviderAzure,
		Identifier: "Standard_D2s_v3",
		Region:     "eastus",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if price.Source.ProductName != "Virtual Machines Dsv3 Series" {
		t.Errorf("got product %q", price.Source.ProductName)
	}
	if price.Source.MeterName != "D2s v3" {
		t.Errorf("got meter %q", price.Source.MeterName)
	}
	if price.Source.PriceType != "Consumption" {
		t.Errorf("got price type %q", price.Source.PriceType)
	}
	if price.LocationName != "US East" {
		t.Errorf("got location %q", price.LocationName)
	}
}
