// Package config loads the labauth configuration from file, environment
// and defaults, and builds the group-resolver registry the runtime uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/groups"
	"github.com/openlabtools/labauth/pkg/provision"
)

// Config is the labauth service configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (LABAUTH_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Profiling controls Pyroscope continuous profiling
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the local account store (SQLite or PostgreSQL)
	Database account.Config `mapstructure:"database" yaml:"database"`

	// Directory configures the remote lab-directory client
	Directory DirectoryConfig `mapstructure:"directory" yaml:"directory"`

	// Sync configures the provisioning lifecycle. It is frozen at
	// startup; runtime components receive a copy.
	Sync provision.SyncConfig `mapstructure:"sync" yaml:"sync"`

	// Groups configures group resolution
	Groups GroupsConfig `mapstructure:"groups" yaml:"groups"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains admin API server configuration
	API APIConfig `mapstructure:"api" yaml:"api"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL (e.g., "http://localhost:4040")
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// DirectoryConfig configures the remote lab-directory client.
type DirectoryConfig struct {
	// BaseURL is the root of the directory API
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIKey authenticates this service against the directory
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// Timeout bounds each remote call
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// CacheTTL is how long positive lookup results are cached
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// ResolverConfig defines one named group resolver.
type ResolverConfig struct {
	// Kind selects the resolver variant:
	// literal, unit, instrument, autonomy, or composite
	Kind string `mapstructure:"kind" validate:"required,oneof=literal unit instrument autonomy composite" yaml:"kind"`

	// Groups is the comma-separated group list for literal resolvers
	Groups string `mapstructure:"groups" yaml:"groups"`

	// Level is the permission level of created groups:
	// private, read-only, or read-annotate
	Level string `mapstructure:"level" yaml:"level"`

	// Facilities is the facility-id whitelist for instrument resolvers.
	// Empty blocks everything.
	Facilities []int `mapstructure:"facilities" yaml:"facilities"`

	// Types is the instrument-type whitelist for instrument resolvers.
	// Empty blocks everything.
	Types []string `mapstructure:"types" yaml:"types"`

	// Members names the resolvers a composite runs, in order
	Members []string `mapstructure:"members" yaml:"members"`
}

// GroupsConfig configures group resolution.
type GroupsConfig struct {
	// Shared settings applied by every resolver
	Shared groups.Config `mapstructure:"shared" yaml:"shared"`

	// Resolvers defines the named resolvers
	Resolvers map[string]ResolverConfig `mapstructure:"resolvers" yaml:"resolvers"`

	// NewUser names the resolver producing a new account's groups
	NewUser string `mapstructure:"new_user" yaml:"new_user"`

	// Sync names the resolver producing externally granted groups
	Sync string `mapstructure:"sync" yaml:"sync"`

	// DefaultGroup names the resolver producing the default group
	DefaultGroup string `mapstructure:"default_group" yaml:"default_group"`
}

// MetricsConfig contains Prometheus metrics server configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the metrics listener port
	Port int `mapstructure:"port" yaml:"port"`
}

// APIConfig contains admin API server configuration.
type APIConfig struct {
	// Port is the API listener port
	Port int `mapstructure:"port" yaml:"port"`

	// JWTSecret signs API tokens
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// TokenDuration is how long issued tokens stay valid
	TokenDuration time.Duration `mapstructure:"token_duration" yaml:"token_duration"`

	// ReadTimeout is the maximum duration for reading a request
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Config may contain the directory API key, keep it owner-only.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variables and config
// file settings. Environment variables use the LABAUTH_ prefix, e.g.
// LABAUTH_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("LABAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing
// file is not an error; defaults are used instead.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s", "5m", "1h" to
// time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path. Uses
// XDG_CONFIG_HOME if set, otherwise ~/.config.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "labauth")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "labauth")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
