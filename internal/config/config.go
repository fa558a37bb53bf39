// Package config loads culler settings from TOML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/lazypower/culler/internal/engine"
	"github.com/lazypower/culler/internal/faces"
	"github.com/lazypower/culler/internal/library"
	"github.com/lazypower/culler/internal/logging"
	"github.com/lazypower/culler/internal/similarity"
)

//go:embed sample_config.toml
var sampleConfig string

// Config holds all culler configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Grouping GroupingConfig `toml:"grouping"`
	Faces    FacesConfig    `toml:"faces"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"` // empty: ~/.culler/culler.db
}

type LibraryConfig struct {
	Root            string   `toml:"root"`
	Extensions      []string `toml:"extensions"`
	TrashDir        string   `toml:"trash_dir"`
	ModTimeFallback bool     `toml:"mod_time_fallback"`
}

type GroupingConfig struct {
	WindowMinutes   int               `toml:"window_minutes"`
	FirstBatch      int               `toml:"first_batch"`
	NextBatch       int               `toml:"next_batch"`
	LookAhead       int               `toml:"look_ahead"`
	ReplenishBelow  int               `toml:"replenish_below"`
	DailyQuota      int               `toml:"daily_quota"`
	BitmapSize      int               `toml:"bitmap_size"`
	CacheTTLMinutes int               `toml:"cache_ttl_minutes"`
	Preset          string            `toml:"preset"` // overrides tuning when set
	Tuning          similarity.Tuning `toml:"tuning"`
}

type FacesConfig struct {
	URL               string  `toml:"url"` // empty disables face detection
	APIKey            string  `toml:"api_key"`
	Threshold         float64 `toml:"threshold"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	eng := engine.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37777,
		},
		Library: LibraryConfig{
			Extensions:      append([]string(nil), library.DefaultExtensions...),
			ModTimeFallback: true,
		},
		Grouping: GroupingConfig{
			WindowMinutes:   eng.WindowMinutes,
			FirstBatch:      eng.FirstBatch,
			NextBatch:       eng.NextBatch,
			LookAhead:       eng.LookAhead,
			ReplenishBelow:  eng.ReplenishBelow,
			DailyQuota:      eng.DailyQuota,
			BitmapSize:      eng.BitmapSize,
			CacheTTLMinutes: 30,
			Tuning:          similarity.DefaultTuning(),
		},
		Faces: FacesConfig{
			Threshold:      0.8,
			TimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/culler/config.toml")
}

// Load locates, parses, normalizes and validates a configuration file. A
// missing file is not an error: defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("culler.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// BaseURL is the address clients use to reach the server.
func (c *Config) BaseURL() string {
	host := c.Server.Bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

// EngineConfig converts the grouping section. A named preset takes
// precedence over the explicit tuning table.
func (c *Config) EngineConfig() engine.Config {
	g := c.Grouping
	tuning := g.Tuning
	if g.Preset != "" {
		if p, err := similarity.ParsePreset(g.Preset); err == nil {
			tuning = p.Tuning()
		}
	}
	return engine.Config{
		WindowMinutes:  g.WindowMinutes,
		FirstBatch:     g.FirstBatch,
		NextBatch:      g.NextBatch,
		LookAhead:      g.LookAhead,
		ReplenishBelow: g.ReplenishBelow,
		DailyQuota:     g.DailyQuota,
		BitmapSize:     g.BitmapSize,
		Tuning:         tuning,
	}
}

// CacheTTL is how long signatures stay in the in-process cache.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Grouping.CacheTTLMinutes) * time.Minute
}

// LibraryOptions converts the library section.
func (c *Config) LibraryOptions() library.Options {
	return library.Options{
		Root:            c.Library.Root,
		Extensions:      c.Library.Extensions,
		TrashDir:        c.Library.TrashDir,
		ModTimeFallback: c.Library.ModTimeFallback,
	}
}

// FacesEnabled reports whether a detection service is configured.
func (c *Config) FacesEnabled() bool {
	return strings.TrimSpace(c.Faces.URL) != ""
}

// FacesConfig converts the faces section.
func (c *Config) FacesConfig() faces.HTTPConfig {
	return faces.HTTPConfig{
		URL:               c.Faces.URL,
		APIKey:            c.Faces.APIKey,
		Threshold:         c.Faces.Threshold,
		RequestsPerSecond: c.Faces.RequestsPerSecond,
		Timeout:           time.Duration(c.Faces.TimeoutSeconds) * time.Second,
	}
}

// LoggingOptions converts the logging section.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the embedded sample configuration.
func Sample() string {
	return sampleConfig
}
