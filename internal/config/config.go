package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Strava StravaConfig `json:"strava"`
	Window WindowConfig `json:"window"`
	Cache  CacheConfig  `json:"cache"`
	Server ServerConfig `json:"server"`
	Log    LogConfig    `json:"log"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// WindowConfig holds the default date range for summaries
type WindowConfig struct {
	DefaultDays  int    `json:"default_days"`
	ActivityType string `json:"activity_type"`
}

// CacheConfig bounds the zone record cache. MaxEntries 0 keeps everything.
type CacheConfig struct {
	MaxEntries int `json:"max_entries"`
}

// ServerConfig holds settings for `zonetrends serve`
type ServerConfig struct {
	Addr     string `json:"addr"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// LogConfig holds logging settings. An empty File logs to stderr.
type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Environment variables that override the config file
const (
	EnvClientID     = "STRAVA_CLIENT_ID"
	EnvClientSecret = "STRAVA_CLIENT_SECRET"
	EnvServerUser   = "DASH_USER"
	EnvServerPass   = "DASH_PW"
)

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			DefaultDays:  30,
			ActivityType: "running",
		},
		Server: ServerConfig{
			Addr: ":8050",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadEnv reads KEY=value pairs from a .env file in the working directory
// into the process environment. A missing file is not an error.
func LoadEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads the configuration from ~/.zonetrends/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path. When the file is missing but
// credentials are present in the environment, defaults plus environment are used.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if os.Getenv(EnvClientID) == "" {
			return nil, ErrNoConfig
		}
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, nil
}

// applyDefaults fills values left empty in the file
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Window.DefaultDays == 0 {
		c.Window.DefaultDays = defaults.Window.DefaultDays
	}
	if c.Window.ActivityType == "" {
		c.Window.ActivityType = defaults.Window.ActivityType
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Strava.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Strava.ClientSecret = v
	}
	if v := os.Getenv(EnvServerUser); v != "" {
		c.Server.User = v
	}
	if v := os.Getenv(EnvServerPass); v != "" {
		c.Server.Password = v
	}
}

// Save writes the configuration to ~/.zonetrends/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file at the default path if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return CreateExampleAt(path)
}

// CreateExampleAt writes an example config to path unless a file is already there
func CreateExampleAt(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}

	return SaveTo(path, &example)
}

// DefaultConfigPath returns ~/.zonetrends/config.json
func DefaultConfigPath() (string, error) {
	return getConfigPath()
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}

	if c.Window.DefaultDays < 0 {
		return fmt.Errorf("window.default_days must be positive, got %d", c.Window.DefaultDays)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be 0 (unbounded) or positive, got %d", c.Cache.MaxEntries)
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if c.Server.User != "" && c.Server.Password == "" {
		return errors.New("server.password is required when server.user is set")
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".zonetrends"), nil
}
