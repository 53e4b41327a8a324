package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Values read from the file can be overridden by environment variables, see [ApplyEnv].
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Auth        AuthConfig        `toml:"auth"`
	Spotify     CatalogConfig     `toml:"spotify"`
	Polling     PollingConfig     `toml:"polling"`
	Recommend   RecommendConfig   `toml:"recommend"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Genius  GeniusConfig  `toml:"genius"`
	Gemini  GeminiConfig  `toml:"gemini"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI"`
}

// GeniusConfig contains the Genius API access token.
type GeniusConfig struct {
	AccessToken string `toml:"access_token" env:"GENIUS_ACCESS_TOKEN"`
}

// GeminiConfig contains the Gemini API key and model name.
type GeminiConfig struct {
	APIKey string `toml:"api_key" env:"GEMINI_API_KEY"`
	Model  string `toml:"model" env:"GEMINI_MODEL"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"MUSICBLAH_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host" env:"MUSICBLAH_HOST"`
	Port           int      `toml:"port" env:"MUSICBLAH_PORT"`
	PublicURL      string   `toml:"public_url" env:"MUSICBLAH_PUBLIC_URL"`
	AllowedOrigins []string `toml:"allowed_origins" env:"MUSICBLAH_ALLOWED_ORIGINS" envSeparator:","`
	RequestsPerSec float64  `toml:"requests_per_second"`
	TrustedProxies []string `toml:"trusted_proxies" env:"MUSICBLAH_TRUSTED_PROXIES" envSeparator:","`
}

// AuthConfig contains session token settings.
type AuthConfig struct {
	JWTSecret  string   `toml:"jwt_secret" env:"MUSICBLAH_JWT_SECRET"`
	Issuer     string   `toml:"issuer"`
	SessionTTL Duration `toml:"session_ttl"`
}

// CatalogConfig contains catalog lookup settings.
type CatalogConfig struct {
	Market           string `toml:"market" env:"SPOTIFY_MARKET"`
	TrendsPlaylistID string `toml:"trends_playlist_id" env:"SPOTIFY_TRENDS_PLAYLIST_ID"`
}

// PollingConfig controls the now-playing poller.
type PollingConfig struct {
	Enabled         bool     `toml:"enabled"`
	Interval        Duration `toml:"interval"`
	FriendsInterval Duration `toml:"friends_interval"`
	FriendsLimit    int      `toml:"friends_limit"`
	IncludeSelf     bool     `toml:"include_self"`
	RatePerSecond   float64  `toml:"rate_per_second"`
}

// RecommendConfig controls recommendation caching.
type RecommendConfig struct {
	CacheTTL Duration `toml:"cache_ttl"`
}

// Duration wraps [time.Duration] so it can be written as "10s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Missing keys keep the embedded defaults and environment variables are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values with any environment variables that are set.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
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

// Addr returns the host:port the HTTP server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
