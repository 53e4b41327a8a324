package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./musicblah.db" {
			t.Errorf("expected database path ./musicblah.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Spotify.Market != "BR" {
			t.Errorf("expected market BR, got %s", config.Spotify.Market)
		}

		if config.Polling.Interval.Duration != 10*time.Second {
			t.Errorf("expected polling interval 10s, got %s", config.Polling.Interval)
		}

		if config.Credentials.Gemini.Model != "gemini-2.5-flash-lite" {
			t.Errorf("unexpected gemini model %s", config.Credentials.Gemini.Model)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[polling]
interval = "45s"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Polling.Interval.Duration != 45*time.Second {
			t.Errorf("expected interval 45s, got %s", config.Polling.Interval)
		}

		if config.Spotify.Market != "BR" {
			t.Errorf("missing keys should keep defaults, got market %q", config.Spotify.Market)
		}
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "from_env")
		t.Setenv("MUSICBLAH_PORT", "9090")
		t.Setenv("MUSICBLAH_ALLOWED_ORIGINS", "https://a.test,https://b.test")
		t.Setenv("MUSICBLAH_TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")

		config := DefaultConfig()
		if err := ApplyEnv(config); err != nil {
			t.Fatalf("ApplyEnv failed: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "from_env" {
			t.Errorf("expected client id from_env, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", config.Server.Port)
		}
		if len(config.Server.AllowedOrigins) != 2 {
			t.Errorf("expected 2 origins, got %v", config.Server.AllowedOrigins)
		}
		if len(config.Server.TrustedProxies) != 2 || config.Server.TrustedProxies[0] != "10.0.0.0/8" {
			t.Errorf("expected 2 trusted proxies, got %v", config.Server.TrustedProxies)
		}
		if config.Credentials.Spotify.ClientSecret != "your_spotify_client_secret" {
			t.Errorf("unset variables should keep file values, got %s", config.Credentials.Spotify.ClientSecret)
		}
	})

	t.Run("Invalid duration", func(t *testing.T) {
		var d Duration
		if err := d.UnmarshalText([]byte("soon")); err == nil {
			t.Error("expected error for invalid duration")
		}
	})
}
