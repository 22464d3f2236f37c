// Package main implements the entry point for the marketstreams service:
// multi-tenant market data stream lifecycle management with per-tenant
// admission control, health evaluation, and an HTTP/WebSocket gateway.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/marketstreams/catalog"
	"github.com/c360/marketstreams/config"
	"github.com/c360/marketstreams/gateway"
	"github.com/c360/marketstreams/metric"
	"github.com/c360/marketstreams/natsclient"
	"github.com/c360/marketstreams/service"
	"github.com/c360/marketstreams/stream"
	"github.com/c360/marketstreams/tenant"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "marketstreams"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s %s (build %s)\n", appName, Version, BuildTime)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}
	if err := validateFlags(cliCfg); err != nil {
		return err
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("configuration is valid", "path", cliCfg.ConfigPath)
		return nil
	}

	logger.Info("starting",
		"environment", cfg.Platform.Environment,
		"platform_id", cfg.Platform.ID,
		"nats_enabled", cfg.NATS.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics registry and exporter.
	registry := metric.NewRegistry()
	metrics := registry.CoreMetrics()
	metricsServer := metric.NewServer(cfg.Server.MetricsPort, "/metrics", registry)

	// Optional NATS: shared catalog/tenant state and lifecycle events. Without
	// it everything runs on in-memory stores.
	var (
		natsClient *natsclient.Client
		sources    catalog.Lookup
		tenants    tenant.Store
	)
	if cfg.NATS.Enabled {
		natsClient, err = natsclient.NewClient(cfg.NATS.URLs[0],
			natsclient.WithClientName(appName+"-"+cfg.Platform.ID),
			natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
			natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
			natsclient.WithUserInfo(cfg.NATS.Username, cfg.NATS.Password),
			natsclient.WithToken(cfg.NATS.Token),
			natsclient.WithLogger(logger),
			natsclient.WithMetrics(metrics),
		)
		if err != nil {
			return fmt.Errorf("create NATS client: %w", err)
		}
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = natsClient.Close(closeCtx)
		}()

		catalogStore, err := catalog.NewStore(natsClient)
		if err != nil {
			return fmt.Errorf("create catalog store: %w", err)
		}
		sources = catalogStore

		tenantStore, err := tenant.NewKVStore(natsClient, cfg.Streams.DefaultMaxConcurrentStreams)
		if err != nil {
			return fmt.Errorf("create tenant store: %w", err)
		}
		tenants = tenantStore
	} else {
		sources = catalog.NewMemory()
		tenants = tenant.NewMemory(cfg.Streams.DefaultMaxConcurrentStreams)
	}

	manager, err := stream.NewManager(sources, tenants,
		stream.WithLogger(logger),
		stream.WithMetrics(metrics),
		stream.WithHealthThresholds(stream.HealthThresholds{
			StaleAfter:         cfg.Streams.StaleAfter,
			ErrorRateThreshold: cfg.Streams.ErrorRateThreshold,
			LatencyThresholdMs: cfg.Streams.LatencyThresholdMs,
		}),
	)
	if err != nil {
		return fmt.Errorf("create stream manager: %w", err)
	}

	svcOpts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(metrics),
		service.WithSweepInterval(cfg.Streams.HealthSweepInterval),
		service.WithEventPrefix(cfg.Platform.Org),
	}
	if natsClient != nil {
		svcOpts = append(svcOpts, service.WithNATS(natsClient))
	}
	svc, err := service.New(manager, svcOpts...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	gw, err := gateway.NewServer(svc, gateway.Config{Port: cfg.Server.HTTPPort}, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Start(gctx)
	})
	g.Go(func() error {
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", cliCfg.ShutdownTimeout.String())
		_ = gw.Stop(cliCfg.ShutdownTimeout)
		_ = metricsServer.Stop()
		return svc.Stop(cliCfg.ShutdownTimeout)
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

// loadConfiguration builds the effective config from defaults, the optional
// file layer, and environment overrides, then validates it.
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// Platform identity defaults for local runs; production deployments set
	// these in the config file or environment.
	if cfg.Platform.Org == "" {
		cfg.Platform.Org = "c360"
	}
	if cfg.Platform.ID == "" {
		cfg.Platform.ID = "local"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
