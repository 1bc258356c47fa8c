// Package config loads xsdgate settings from defaults, an optional YAML file
// and environment variables. Command-line flags are applied on top by the
// caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentflare-ai/xsdgate/xsd"
)

// DefaultFile is the configuration file picked up from the working directory
// when no path is given.
const DefaultFile = ".xsdgate.yaml"

// DefaultSchemaName is the schema looked up next to the executable.
const DefaultSchemaName = "default.xsd"

// Config holds all settings for a validation run.
type Config struct {
	Schema             string        // XSDGATE_SCHEMA, default default.xsd next to the executable
	SchemaMode         xsd.Mode      // XSDGATE_SCHEMA_MODE, default lax
	Timeout            time.Duration // XSDGATE_TIMEOUT, default 0 (no deadline)
	AllowRemoteImports bool          // XSDGATE_ALLOW_REMOTE_IMPORTS, default false
	SchemaCacheSize    int           // XSDGATE_SCHEMA_CACHE_SIZE, default 16
	Color              string        // XSDGATE_COLOR, default "auto"

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "warn"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 3
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true

	// File is the configuration file that was read, if any.
	File string
}

// file mirrors the YAML layout. Pointers tell absent keys from zero values.
type file struct {
	Schema             *string `yaml:"schema"`
	SchemaMode         *string `yaml:"schema_mode"`
	Timeout            *string `yaml:"timeout"`
	AllowRemoteImports *bool   `yaml:"allow_remote_imports"`
	SchemaCacheSize    *int    `yaml:"schema_cache_size"`
	Color              *string `yaml:"color"`
	LogLevel           *string `yaml:"log_level"`
	LogFile            *string `yaml:"log_file"`
	LogMaxSizeMB       *int    `yaml:"log_max_size_mb"`
	LogMaxBackups      *int    `yaml:"log_max_backups"`
	LogMaxAgeDays      *int    `yaml:"log_max_age_days"`
	LogCompress        *bool   `yaml:"log_compress"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Schema:          DefaultSchemaPath(),
		SchemaMode:      xsd.Lax,
		SchemaCacheSize: xsd.DefaultCacheSize,
		Color:           "auto",
		LogLevel:        "warn",
		LogMaxSizeMB:    10,
		LogMaxBackups:   3,
		LogMaxAgeDays:   28,
		LogCompress:     true,
	}
}

// Load builds the configuration. path names a YAML file that must exist; an
// empty path reads DefaultFile from the working directory when present.
// Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.apply(data); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
		cfg.File = path
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	if f.Schema != nil {
		c.Schema = *f.Schema
	}
	if f.SchemaMode != nil {
		mode, err := xsd.ParseMode(*f.SchemaMode)
		if err != nil {
			return err
		}
		c.SchemaMode = mode
	}
	if f.Timeout != nil {
		d, err := parseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	if f.AllowRemoteImports != nil {
		c.AllowRemoteImports = *f.AllowRemoteImports
	}
	if f.SchemaCacheSize != nil {
		c.SchemaCacheSize = *f.SchemaCacheSize
	}
	if f.Color != nil {
		c.Color = *f.Color
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogFile != nil {
		c.LogFile = *f.LogFile
	}
	if f.LogMaxSizeMB != nil {
		c.LogMaxSizeMB = *f.LogMaxSizeMB
	}
	if f.LogMaxBackups != nil {
		c.LogMaxBackups = *f.LogMaxBackups
	}
	if f.LogMaxAgeDays != nil {
		c.LogMaxAgeDays = *f.LogMaxAgeDays
	}
	if f.LogCompress != nil {
		c.LogCompress = *f.LogCompress
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Schema = getEnvString("XSDGATE_SCHEMA", c.Schema)
	if v := os.Getenv("XSDGATE_SCHEMA_MODE"); v != "" {
		mode, err := xsd.ParseMode(v)
		if err != nil {
			return fmt.Errorf("XSDGATE_SCHEMA_MODE: %w", err)
		}
		c.SchemaMode = mode
	}
	if v := os.Getenv("XSDGATE_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("XSDGATE_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	c.AllowRemoteImports = getEnvBool("XSDGATE_ALLOW_REMOTE_IMPORTS", c.AllowRemoteImports)
	c.SchemaCacheSize = getEnvInt("XSDGATE_SCHEMA_CACHE_SIZE", c.SchemaCacheSize)
	c.Color = getEnvString("XSDGATE_COLOR", c.Color)

	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvString("LOG_FILE", c.LogFile)
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)
	c.LogCompress = getEnvBool("LOG_COMPRESS", c.LogCompress)
	return nil
}

// DefaultSchemaPath returns default.xsd in the directory of the running
// executable, following symlinks.
func DefaultSchemaPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultSchemaName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), DefaultSchemaName)
}

// ParseColor checks a color setting.
func ParseColor(s string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "auto":
		return "auto", nil
	case "always", "never":
		return v, nil
	}
	return "", fmt.Errorf("unknown color setting %q (want auto, always or never)", s)
}

// parseDuration accepts Go durations ("1.5s") and bare milliseconds ("1500").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if ms, err := strconv.Atoi(s); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
