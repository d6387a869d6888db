package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Supabase SupabaseConfig `toml:"supabase"`
	Webhooks WebhookConfig  `toml:"webhooks"`
	Polling  PollingConfig  `toml:"polling"`
	Database DatabaseConfig `toml:"database"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
	Dev      DevConfig      `toml:"dev"`
}

// SupabaseConfig contains the hosted project endpoint and public key.
type SupabaseConfig struct {
	URL         string `toml:"url"`
	AnonKey     string `toml:"anon_key"`
	RedirectURI string `toml:"redirect_uri"`
}

// WebhookConfig lists the job-creation endpoints.
type WebhookConfig struct {
	Thumbnail string   `toml:"thumbnail"`
	Analyze   string   `toml:"analyze"`
	ABTest    string   `toml:"ab_test"`
	Video     string   `toml:"video"`
	Timeout   Duration `toml:"timeout"`
}

// PollingConfig tunes the job status poller.
type PollingConfig struct {
	Interval Duration `toml:"interval"`
	Rate     float64  `toml:"rate"`
}

// DatabaseConfig contains local SQLite settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PostgresConfig holds an optional direct connection string.
type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DevConfig controls the developer session bypass.
type DevConfig struct {
	BypassEnabled bool   `toml:"bypass_enabled"`
	BypassEmail   string `toml:"bypass_email"`
	BypassPlan    string `toml:"bypass_plan"`
	BypassCredits int    `toml:"bypass_credits"`
}

// Duration wraps [time.Duration] so it can be written as "4s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Validate reports missing values required to talk to the hosted project.
func (c *Config) Validate() error {
	if c.Supabase.URL == "" {
		return fmt.Errorf("%w: supabase.url", ErrMissingConfig)
	}
	if c.Supabase.AnonKey == "" {
		return fmt.Errorf("%w: supabase.anon_key", ErrMissingCredentials)
	}
	if c.Polling.Interval.Duration < 0 || c.Polling.Rate < 0 {
		return fmt.Errorf("%w: polling values must not be negative", ErrInvalidConfig)
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

	return config, nil
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
