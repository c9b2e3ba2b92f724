package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlabtools/labauth/internal/logger"
	"github.com/openlabtools/labauth/internal/telemetry"
	"github.com/openlabtools/labauth/pkg/api"
	apiauth "github.com/openlabtools/labauth/pkg/api/auth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the labauth service",
	Long: `Start the labauth service with the specified configuration.

The service connects to the remote lab directory, opens the local
account database and serves the admin API and optional metrics
endpoint until interrupted.

Examples:
  # Start with default config location
  labauth serve

  # Start with custom config file
  labauth serve --config /etc/labauth/config.yaml

  # Override config with environment variables
  LABAUTH_LOGGING_LEVEL=DEBUG labauth serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	cfg := rt.cfg

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Profiling.Enabled,
		ServiceVersion: Version,
		Endpoint:       cfg.Profiling.Endpoint,
		ProfileTypes:   cfg.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	logger.Info("Directory client configured",
		"base_url", cfg.Directory.BaseURL,
		"cache_ttl", cfg.Directory.CacheTTL.String(),
	)
	logger.Info("Provisioning configured",
		"enabled", cfg.Sync.Enabled,
		"policy", cfg.Sync.Policy,
		"sync_groups", cfg.Sync.SyncGroups,
		"sync_attributes", cfg.Sync.SyncAttributes,
	)

	jwtService, err := apiauth.NewJWTService(apiauth.JWTConfig{
		Secret:        cfg.API.JWTSecret,
		TokenDuration: cfg.API.TokenDuration,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	apiServer := api.NewServer(api.Config{
		Port:         cfg.API.Port,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}, api.Dependencies{
		Store:       rt.store,
		Provider:    rt.chain,
		Provisioner: rt.service,
		JWTService:  jwtService,
	})

	// Start servers in background
	serverDone := make(chan error, 2)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()
	if cfg.Metrics.Enabled {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		go func() {
			serverDone <- serveMetrics(ctx, rt, cfg.Metrics.Port, cfg.ShutdownTimeout)
		}()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Service is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		logger.Info("Service stopped gracefully")
		return nil

	case err := <-serverDone:
		cancel()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("Service stopped")
		return nil
	}
}

// serveMetrics runs the prometheus exposition endpoint until the
// context is cancelled.
func serveMetrics(ctx context.Context, rt *runtime, port int, shutdownTimeout time.Duration) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Metrics server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}
