package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Failure policies decide how a failed fetch affects polling cadence.
const (
	FailurePolicyHold         = "hold"
	FailurePolicyCountAsEmpty = "count_as_empty"
)

// envPrefix is prepended to upper-cased config keys for environment overrides
// (e.g., GH_NOTIFIER_POLLING_BASE_INTERVAL_SEC).
const envPrefix = "GH_NOTIFIER"

// GitHubConfig holds the connection settings for the notifications API.
type GitHubConfig struct {
	// BaseURL is the API root (https://api.github.com or a GHES /api/v3 URL).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Account labels the polled account and suffixes the keyring key.
	Account string `mapstructure:"account" yaml:"account"`

	// RequestTimeoutSec bounds a single API request.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// PollingConfig holds the adaptive polling settings.
type PollingConfig struct {
	BaseIntervalSec       int    `mapstructure:"base_interval_sec" yaml:"base_interval_sec"`
	MaxIntervalSec        int    `mapstructure:"max_interval_sec" yaml:"max_interval_sec"`
	WarmupSec             int    `mapstructure:"warmup_sec" yaml:"warmup_sec"`
	FailurePolicy         string `mapstructure:"failure_policy" yaml:"failure_policy"`
	RefreshMinIntervalSec int    `mapstructure:"refresh_min_interval_sec" yaml:"refresh_min_interval_sec"`
}

// StoreConfig controls the local notification database.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// StatusConfig controls the status/metrics HTTP endpoint.
type StatusConfig struct {
	// Listen is the address to bind; empty disables the endpoint.
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	GitHub  GitHubConfig  `mapstructure:"github" yaml:"github"`
	Polling PollingConfig `mapstructure:"polling" yaml:"polling"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Status  StatusConfig  `mapstructure:"status" yaml:"status"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// BaseInterval returns the polling floor as a duration.
func (c PollingConfig) BaseInterval() time.Duration {
	return time.Duration(c.BaseIntervalSec) * time.Second
}

// MaxInterval returns the polling ceiling as a duration.
func (c PollingConfig) MaxInterval() time.Duration {
	return time.Duration(c.MaxIntervalSec) * time.Second
}

// Warmup returns the delay before the first poll.
func (c PollingConfig) Warmup() time.Duration {
	return time.Duration(c.WarmupSec) * time.Second
}

// RefreshMinInterval returns the minimum spacing of manual refreshes.
func (c PollingConfig) RefreshMinInterval() time.Duration {
	return time.Duration(c.RefreshMinIntervalSec) * time.Second
}

// RequestTimeout returns the per-request timeout.
func (c GitHubConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Validate checks the configuration for values the poller cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.GitHub.BaseURL) == "" {
		errs = append(errs, errors.New("github.base_url is required"))
	}
	if c.GitHub.RequestTimeoutSec <= 0 {
		errs = append(errs, errors.New("github.request_timeout_sec must be positive"))
	}
	if c.Polling.BaseIntervalSec <= 0 {
		errs = append(errs, errors.New("polling.base_interval_sec must be positive"))
	}
	if c.Polling.MaxIntervalSec < c.Polling.BaseIntervalSec {
		errs = append(errs, fmt.Errorf(
			"polling.max_interval_sec (%d) must be >= base_interval_sec (%d)",
			c.Polling.MaxIntervalSec, c.Polling.BaseIntervalSec,
		))
	}
	if c.Polling.WarmupSec < 0 {
		errs = append(errs, errors.New("polling.warmup_sec must not be negative"))
	}
	switch c.Polling.FailurePolicy {
	case FailurePolicyHold, FailurePolicyCountAsEmpty:
	default:
		errs = append(errs, fmt.Errorf(
			"polling.failure_policy %q must be %q or %q",
			c.Polling.FailurePolicy, FailurePolicyHold, FailurePolicyCountAsEmpty,
		))
	}
	if c.Store.Enabled && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is required when the store is enabled"))
	}

	return errors.Join(errs...)
}

// ConfigDir returns ~/.config/gh-notifier, falling back to the working
// directory when the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "gh-notifier")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/gh-notifier/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultLogPath is where the TUI writes logs when none is configured.
func DefaultLogPath() string {
	return filepath.Join(ConfigDir(), "gh-notifier.log")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		GitHub: GitHubConfig{
			BaseURL:           "https://api.github.com",
			Account:           "default",
			RequestTimeoutSec: 30,
		},
		Polling: PollingConfig{
			BaseIntervalSec:       60,
			MaxIntervalSec:        200,
			WarmupSec:             3,
			FailurePolicy:         FailurePolicyHold,
			RefreshMinIntervalSec: 10,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    filepath.Join(ConfigDir(), "notifications.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// setDefaults registers every key with viper so that environment
// overrides resolve even when the key is absent from the file.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("github.base_url", d.GitHub.BaseURL)
	v.SetDefault("github.account", d.GitHub.Account)
	v.SetDefault("github.request_timeout_sec", d.GitHub.RequestTimeoutSec)
	v.SetDefault("polling.base_interval_sec", d.Polling.BaseIntervalSec)
	v.SetDefault("polling.max_interval_sec", d.Polling.MaxIntervalSec)
	v.SetDefault("polling.warmup_sec", d.Polling.WarmupSec)
	v.SetDefault("polling.failure_policy", d.Polling.FailurePolicy)
	v.SetDefault("polling.refresh_min_interval_sec", d.Polling.RefreshMinIntervalSec)
	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("status.listen", d.Status.Listen)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, defaultAppConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Log.File = expandHome(cfg.Log.File)
	cfg.Polling.FailurePolicy = strings.ToLower(strings.TrimSpace(cfg.Polling.FailurePolicy))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("github", cfg.GitHub)
	v.Set("polling", cfg.Polling)
	v.Set("store", cfg.Store)
	v.Set("status", cfg.Status)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
