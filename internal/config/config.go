// Package config loads tracklens settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ResolverMusicAPI = "musicapi"
	ResolverSpotify  = "spotify"
)

type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Server     ServerConfig     `yaml:"server"`
	MusicAPI   MusicAPIConfig   `yaml:"music_api"`
	ReccoBeats ReccoBeatsConfig `yaml:"reccobeats"`
	Spotify    SpotifyConfig    `yaml:"spotify"`
	History    HistoryConfig    `yaml:"history"`

	// Resolver picks the identifier resolution backend: "musicapi" or "spotify".
	Resolver         string `yaml:"resolver"`
	ExternalIDMarker string `yaml:"external_id_marker"`
	QuickLinkCache   *bool  `yaml:"quick_link_cache"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type MusicAPIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	RateLimit    time.Duration `yaml:"rate_limit"`
	Burst        int           `yaml:"burst"`
}

type ReccoBeatsConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	BaseURL      string `yaml:"base_url"`
}

type HistoryConfig struct {
	DSN       string `yaml:"dsn"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
}

// Load builds a Config. An empty path skips the YAML file; a .env file in
// the working directory is loaded when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied flag
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.LogLevel, "TRACKLENS_LOG_LEVEL")
	setString(&c.Server.Port, "TRACKLENS_PORT")
	setString(&c.MusicAPI.BaseURL, "MUSIC_API_URL")
	setString(&c.ReccoBeats.BaseURL, "RECCOBEATS_URL")
	setString(&c.ReccoBeats.APIKey, "RECCOBEATS_API_KEY")
	setString(&c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setString(&c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setString(&c.Resolver, "TRACKLENS_RESOLVER")

	if raw := os.Getenv("MUSIC_API_MAX_RETRIES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fmt.Errorf("config: MUSIC_API_MAX_RETRIES must be a positive integer, got %q", raw)
		}
		c.MusicAPI.MaxRetries = n
	}
	if raw := os.Getenv("MUSIC_API_RETRY_BACKOFF_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 1 {
			return fmt.Errorf("config: MUSIC_API_RETRY_BACKOFF_MS must be a positive integer, got %q", raw)
		}
		c.MusicAPI.RetryBackoff = time.Duration(ms) * time.Millisecond
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.MusicAPI.BaseURL == "" {
		c.MusicAPI.BaseURL = "http://127.0.0.1:5000/api/music"
	}
	if c.MusicAPI.Timeout == 0 {
		c.MusicAPI.Timeout = 60 * time.Second
	}
	if c.MusicAPI.MaxRetries == 0 {
		c.MusicAPI.MaxRetries = 3
	}
	if c.MusicAPI.RetryBackoff == 0 {
		c.MusicAPI.RetryBackoff = 500 * time.Millisecond
	}
	if c.MusicAPI.RateLimit == 0 {
		c.MusicAPI.RateLimit = 100 * time.Millisecond
	}
	if c.MusicAPI.Burst == 0 {
		c.MusicAPI.Burst = 5
	}
	if c.ReccoBeats.BaseURL == "" {
		c.ReccoBeats.BaseURL = "https://api.reccobeats.com"
	}
	if c.Resolver == "" {
		c.Resolver = ResolverMusicAPI
	}
	if c.ExternalIDMarker == "" {
		c.ExternalIDMarker = "/track/"
	}
	if c.QuickLinkCache == nil {
		enabled := true
		c.QuickLinkCache = &enabled
	}
	if c.History.DSN == "" {
		c.History.DSN = ":memory:"
	}
	if c.History.Workers == 0 {
		c.History.Workers = 2
	}
	if c.History.QueueSize == 0 {
		c.History.QueueSize = 64
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	switch c.Resolver {
	case ResolverMusicAPI:
	case ResolverSpotify:
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
			return errors.New("config: resolver spotify requires spotify.client_id and spotify.client_secret")
		}
	default:
		return fmt.Errorf("config: unknown resolver %q", c.Resolver)
	}
	if c.MusicAPI.MaxRetries < 1 {
		return fmt.Errorf("config: music_api.max_retries must be at least 1")
	}
	if c.History.Workers < 1 || c.History.QueueSize < 1 {
		return fmt.Errorf("config: history.workers and history.queue_size must be positive")
	}
	return nil
}

// CacheQuickLinks reports whether quick-link hits are memoized.
func (c *Config) CacheQuickLinks() bool {
	return c.QuickLinkCache == nil || *c.QuickLinkCache
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log_level %q", raw)
	}
}
