package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig      `toml:"credentials"`
	Database    DatabaseConfig         `toml:"database"`
	Server      ServerConfig           `toml:"server"`
	Sync        SyncConfig             `toml:"sync"`
	Remote      RemoteConfig           `toml:"remote"`
	Quota       map[string]QuotaConfig `toml:"quota" validate:"dive"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	BaseURL      string `toml:"base_url"`
}

// YouTubeConfig contains YouTube Data API credentials. APIKey is the static read-only fallback key.
type YouTubeConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

// SyncConfig tunes the reconciliation engine. Zero values keep the engine defaults.
type SyncConfig struct {
	MatchThreshold    float64 `toml:"match_threshold" validate:"gte=0,lte=1"`
	RemovalGuardRatio float64 `toml:"removal_guard_ratio" validate:"gte=0,lte=1"`
	CallDelayMS       int     `toml:"call_delay_ms" validate:"gte=0"`
	RunTimeoutS       int     `toml:"run_timeout_s" validate:"gte=0"`
	RemoveExtra       bool    `toml:"remove_extra"`
	Parallel          bool    `toml:"parallel"`
}

// CallDelay is the pause between dependent remote calls.
func (s SyncConfig) CallDelay() time.Duration { return time.Duration(s.CallDelayMS) * time.Millisecond }

// RunTimeout is the wall-clock budget of one reconcile run.
func (s SyncConfig) RunTimeout() time.Duration { return time.Duration(s.RunTimeoutS) * time.Second }

// RemoteConfig tunes the resilient remote client.
type RemoteConfig struct {
	MaxRetries   int `toml:"max_retries" validate:"gte=0"`
	MinBackoffMS int `toml:"min_backoff_ms" validate:"gte=0"`
	CacheTTLS    int `toml:"cache_ttl_s" validate:"gte=0"`
	TimeoutS     int `toml:"timeout_s" validate:"gte=0"`
}

func (r RemoteConfig) MinBackoff() time.Duration { return time.Duration(r.MinBackoffMS) * time.Millisecond }
func (r RemoteConfig) CacheTTL() time.Duration   { return time.Duration(r.CacheTTLS) * time.Second }
func (r RemoteConfig) Timeout() time.Duration    { return time.Duration(r.TimeoutS) * time.Second }

// QuotaConfig is one platform's daily budget. Costs are keyed by operation type
// (read_light, read_heavy, search, write, delete).
type QuotaConfig struct {
	DailyBudget     int            `toml:"daily_budget" validate:"gte=0"`
	SafetyThreshold float64        `toml:"safety_threshold" validate:"gte=0,lte=1"`
	Costs           map[string]int `toml:"costs"`
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
