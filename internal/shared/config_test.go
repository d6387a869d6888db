package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./thumbx.db" {
			t.Errorf("expected database path ./thumbx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Polling.Interval.Duration != 4*time.Second {
			t.Errorf("expected polling interval 4s, got %v", config.Polling.Interval)
		}

		if config.Webhooks.Timeout.Duration != 2*time.Minute {
			t.Errorf("expected webhook timeout 2m, got %v", config.Webhooks.Timeout)
		}

		if config.Dev.BypassEnabled {
			t.Error("developer bypass should be disabled by default")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[supabase]
url = "https://abc.supabase.co"
anon_key = "anon"

[polling]
interval = "250ms"

[server]
port = 8080

[dev]
bypass_enabled = true
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Supabase.URL != "https://abc.supabase.co" {
			t.Errorf("unexpected supabase url %s", config.Supabase.URL)
		}
		if config.Polling.Interval.Duration != 250*time.Millisecond {
			t.Errorf("expected 250ms, got %v", config.Polling.Interval)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Database.Path != "./thumbx.db" {
			t.Errorf("missing keys should keep defaults, got %s", config.Database.Path)
		}
		if !config.Dev.BypassEnabled {
			t.Error("expected bypass to be enabled")
		}
	})

	t.Run("LoadConfig rejects bad duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[polling]\ninterval = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Supabase.AnonKey = "saved-key"
		config.Polling.Interval = Duration{3 * time.Second}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("SaveConfig() error = %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Supabase.AnonKey != "saved-key" {
			t.Errorf("expected saved anon key, got %s", loaded.Supabase.AnonKey)
		}
		if loaded.Polling.Interval.Duration != 3*time.Second {
			t.Errorf("expected 3s, got %v", loaded.Polling.Interval)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}

		config.Supabase.URL = ""
		if err := config.Validate(); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}

		config = DefaultConfig()
		config.Supabase.AnonKey = ""
		if err := config.Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
