package commands

import (
	"context"
	"fmt"

	"github.com/openlabtools/labauth/internal/logger"
	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/auth"
	"github.com/openlabtools/labauth/pkg/config"
	"github.com/openlabtools/labauth/pkg/directory"
	"github.com/openlabtools/labauth/pkg/metrics"
	"github.com/openlabtools/labauth/pkg/provision"
)

// runtime bundles the wired components every command operates on: the
// account store, the directory facade, the provisioning service and the
// authentication chain.
type runtime struct {
	cfg     *config.Config
	store   *account.GORMStore
	facade  *directory.Facade
	metrics *metrics.Metrics
	service *provision.Service
	chain   *auth.Chain
}

// buildRuntime loads the configuration and wires the full component
// stack: store, directory client with cache, group resolvers,
// provisioning service and the provider chain.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	store, err := account.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open account store: %w", err)
	}

	m := metrics.New()

	client := directory.NewHTTPClient(directory.HTTPConfig{
		BaseURL: cfg.Directory.BaseURL,
		APIKey:  cfg.Directory.APIKey,
		Timeout: cfg.Directory.Timeout,
	}, m)
	cached := directory.NewCachedClient(client, cfg.Directory.CacheTTL, m)
	facade := directory.NewFacade(cached)

	registry, err := config.BuildResolvers(cfg.Groups, facade, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to build group resolvers: %w", err)
	}
	resolvers, err := config.BindResolvers(cfg.Groups, registry, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to bind group resolvers: %w", err)
	}

	service, err := provision.NewService(ctx, cfg.Sync, facade, store, resolvers, m)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create provisioning service: %w", err)
	}

	// The host's own primary provider slots in ahead of the directory;
	// standalone deployments run the chain on the directory alone.
	provider := auth.NewDirectoryProvider(service, store, m)
	chain := auth.NewChain(auth.NopProvider{}, provider, nil, m)

	return &runtime{
		cfg:     cfg,
		store:   store,
		facade:  facade,
		metrics: m,
		service: service,
		chain:   chain,
	}, nil
}

// Close releases the runtime's resources.
func (r *runtime) Close() error {
	return r.store.Close()
}

func initLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	return config.GetDefaultConfigPath()
}
