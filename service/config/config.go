package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brojonat/stakeguard/service/stacks"
	"github.com/brojonat/stakeguard/service/transfer"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	LogLevel    string
	MetricsAddr string

	// Stacks network selection. The two base URLs must differ so a
	// misconfigured deployment can't silently read mainnet as testnet.
	Network         stacks.Network
	MainnetAPIURL   string
	TestnetAPIURL   string
	PlatformAddress string
	IndexerRPS      float64
	IndexerBurst    int
	WalletBridgeURL string

	// Confirmation polling
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration

	// NATS configuration. Empty disables outcome publishing.
	NATSURL string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string
	WorkerConcurrency int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9091")

	// Stacks configuration
	network, err := stacks.ParseNetwork(getEnvOrDefault("STACKS_NETWORK", string(stacks.Testnet)))
	if err != nil {
		errs = append(errs, fmt.Errorf("STACKS_NETWORK: %w", err))
	} else {
		cfg.Network = network
	}

	cfg.MainnetAPIURL = getEnvOrDefault("STACKS_MAINNET_API_URL", stacks.DefaultMainnetAPIURL)
	cfg.TestnetAPIURL = getEnvOrDefault("STACKS_TESTNET_API_URL", stacks.DefaultTestnetAPIURL)
	if cfg.MainnetAPIURL == cfg.TestnetAPIURL {
		errs = append(errs, fmt.Errorf("STACKS_MAINNET_API_URL and STACKS_TESTNET_API_URL must be different"))
	}

	cfg.PlatformAddress = os.Getenv("PLATFORM_ADDRESS")
	if cfg.PlatformAddress == "" {
		errs = append(errs, fmt.Errorf("PLATFORM_ADDRESS is required"))
	} else if len(cfg.PlatformAddress) < transfer.MinAddressLength {
		errs = append(errs, fmt.Errorf("PLATFORM_ADDRESS must be at least %d characters", transfer.MinAddressLength))
	}

	cfg.WalletBridgeURL = getEnvOrDefault("WALLET_BRIDGE_URL", "http://localhost:8999/rpc")

	rps, err := parseFloat("INDEXER_RPS", 5)
	if err != nil {
		errs = append(errs, err)
	} else if rps <= 0 {
		errs = append(errs, fmt.Errorf("INDEXER_RPS must be positive"))
	} else {
		cfg.IndexerRPS = rps
	}

	burst, err := parseInt("INDEXER_BURST", 1)
	if err != nil {
		errs = append(errs, err)
	} else if burst < 1 {
		errs = append(errs, fmt.Errorf("INDEXER_BURST must be at least 1"))
	} else {
		cfg.IndexerBurst = burst
	}

	// Confirmation polling
	timeout, err := parseDuration("CONFIRM_TIMEOUT", "5m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmTimeout = timeout
	}

	interval, err := parseDuration("CONFIRM_POLL_INTERVAL", "10s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmPollInterval = interval
	}

	if cfg.ConfirmPollInterval > 0 && cfg.ConfirmPollInterval < time.Second {
		errs = append(errs, fmt.Errorf("CONFIRM_POLL_INTERVAL must be at least 1 second"))
	}
	if cfg.ConfirmTimeout > 0 && cfg.ConfirmPollInterval > cfg.ConfirmTimeout {
		errs = append(errs, fmt.Errorf("CONFIRM_POLL_INTERVAL (%v) cannot be greater than CONFIRM_TIMEOUT (%v)",
			cfg.ConfirmPollInterval, cfg.ConfirmTimeout))
	}

	cfg.NATSURL = os.Getenv("NATS_URL")

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "stakeguard-confirmations")

	concurrency, err := parseInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		errs = append(errs, err)
	} else if concurrency < 1 {
		errs = append(errs, fmt.Errorf("WORKER_CONCURRENCY must be at least 1"))
	} else {
		cfg.WorkerConcurrency = concurrency
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for worker initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// APIURL returns the indexer base URL for the selected network.
func (c *Config) APIURL() string {
	if c.Network == stacks.Mainnet {
		return c.MainnetAPIURL
	}
	return c.TestnetAPIURL
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.Network != stacks.Mainnet && c.Network != stacks.Testnet {
		errs = append(errs, fmt.Errorf("Network must be mainnet or testnet"))
	}

	if c.MainnetAPIURL == "" {
		errs = append(errs, fmt.Errorf("MainnetAPIURL is required"))
	}

	if c.TestnetAPIURL == "" {
		errs = append(errs, fmt.Errorf("TestnetAPIURL is required"))
	}

	if c.MainnetAPIURL != "" && c.MainnetAPIURL == c.TestnetAPIURL {
		errs = append(errs, fmt.Errorf("MainnetAPIURL and TestnetAPIURL must be different"))
	}

	if len(c.PlatformAddress) < transfer.MinAddressLength {
		errs = append(errs, fmt.Errorf("PlatformAddress must be at least %d characters", transfer.MinAddressLength))
	}

	if c.IndexerRPS <= 0 {
		errs = append(errs, fmt.Errorf("IndexerRPS must be positive"))
	}

	if c.IndexerBurst < 1 {
		errs = append(errs, fmt.Errorf("IndexerBurst must be at least 1"))
	}

	if c.ConfirmPollInterval < time.Second {
		errs = append(errs, fmt.Errorf("ConfirmPollInterval must be at least 1 second"))
	}

	if c.ConfirmPollInterval > c.ConfirmTimeout {
		errs = append(errs, fmt.Errorf("ConfirmPollInterval cannot be greater than ConfirmTimeout"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}
