// cloudprice - multi-provider cloud price resolution service
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billing "cloud.google.com/go/billing/apiv1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/cloudprice/cloudprice/internal/api"
	"github.com/cloudprice/cloudprice/internal/config"
	"github.com/cloudprice/cloudprice/internal/metrics"
	"github.com/cloudprice/cloudprice/internal/pricing"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cloudprice %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := setupLogger()

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Msg("Starting cloudprice")

	// Load configuration
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)
	cache := pricing.NewCache()

	svc := pricing.NewService(cache, cfg.Cache.TTL.Duration(), m, logger)
	svc.SetDefaultRegion(pricing.ProviderAWS, cfg.Providers.AWS.DefaultRegion)
	svc.SetDefaultRegion(pricing.ProviderAzure, cfg.Providers.Azure.DefaultRegion)
	svc.SetDefaultRegion(pricing.ProviderGCP, cfg.Providers.GCP.DefaultRegion)

	// AWS
	var awsCatalog api.AWSCatalog
	pricingClient, ec2Client, err := pricing.NewAWSClients(ctx,
		cfg.Providers.AWS.Region,
		cfg.Providers.AWS.AccessKeyID,
		cfg.Providers.AWS.SecretAccessKey)
	if err != nil {
		logger.Warn().Err(err).Msg("AWS clients unavailable, AWS endpoints disabled")
	} else {
		svc.Register(pricing.ProviderAWS, pricing.NewAWSResolver(pricingClient, cache, logger))
		awsCatalog = pricing.NewAWSCatalog(ec2Client, logger)
	}

	// Azure: the retail price feed needs no credentials, so the resolver
	// is always on. The ARM catalog needs a subscription.
	svc.Register(pricing.ProviderAzure, pricing.NewAzureResolver(logger))
	var azureCatalog api.AzureCatalog
	if cfg.Providers.Azure.SubscriptionID != "" {
		cred, err := pricing.NewAzureCredential(
			cfg.Providers.Azure.TenantID,
			cfg.Providers.Azure.ClientID,
			cfg.Providers.Azure.ClientSecret)
		if err != nil {
			logger.Warn().Err(err).Msg("Azure credential unavailable, Azure catalog disabled")
		} else {
			catalog, err := pricing.NewAzureCatalog(cfg.Providers.Azure.SubscriptionID, cred, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("Azure catalog unavailable")
			} else {
				azureCatalog = catalog
			}
		}
	}

	// GCP
	var gcpCatalog api.GCPCatalog
	if cfg.Providers.GCP.Project != "" {
		var opts []option.ClientOption
		if cfg.Providers.GCP.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Providers.GCP.CredentialsFile))
		}

		computeSvc, err := compute.NewService(ctx, opts...)
		if err != nil {
			logger.Warn().Err(err).Msg("GCP compute client unavailable, GCP endpoints disabled")
		} else {
			catalogClient, err := billing.NewCloudCatalogClient(ctx, opts...)
			if err != nil {
				logger.Warn().Err(err).Msg("GCP billing client unavailable, GCP endpoints disabled")
			} else {
				defer catalogClient.Close()
				svc.Register(pricing.ProviderGCP, pricing.NewGCPResolver(
					pricing.NewMachineTypeCatalog(computeSvc),
					pricing.NewSKUCatalog(catalogClient),
					cfg.Providers.GCP.Project,
					logger))
				gcpCatalog = pricing.NewGCPCatalog(computeSvc, cfg.Providers.GCP.Project, logger)
			}
		}
	} else {
		logger.Info().Msg("No GCP project configured, GCP endpoints disabled")
	}

	// Cache janitor
	stopSweeper := make(chan struct{})
	cache.StartSweeper(cfg.Cache.SweepInterval.Duration(), stopSweeper)

	// Initialize API
	handler := api.NewHandler(svc, awsCatalog, azureCatalog, gcpCatalog, logger)
	handler.SetDefaultRegion(pricing.ProviderAWS, cfg.Providers.AWS.DefaultRegion)
	handler.SetDefaultRegion(pricing.ProviderGCP, cfg.Providers.GCP.DefaultRegion)
	routerCfg := api.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        m,
	}
	if cfg.Metrics.Prometheus.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Prometheus.Path
	}
	router := api.NewRouterWithConfig(handler, logger, routerCfg)

	// Start HTTP server
	server := &http.Server{
		Addr:         cfg.Server.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.HTTP.WriteTimeout.Duration(),
	}

	go func() {
		logger.Info().Str("address", cfg.Server.HTTP.Address).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	close(stopSweeper)

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("cloudprice stopped")
}

func setupLogger() zerolog.Logger {
	// Default to JSON logging
	zerolog.TimeFieldFormat = time.RFC3339

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Caller().Logger()

	// Set log level from environment
	level := os.Getenv("CLOUDPRICE_LOG_LEVEL")
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}
