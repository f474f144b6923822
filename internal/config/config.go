// Package config loads hbsync settings from .hbsync.yaml, HBSYNC_*
// environment variables, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hulysync/beads-bridge/internal/beadsjsonl"
)

// Config keys. Flags bound to viper use the same names.
const (
	KeyProject        = "project"
	KeyDB             = "db"
	KeyBeadsBin       = "beads-bin"
	KeyPrefix         = "prefix"
	KeyCommandTimeout = "command-timeout"
	KeyLogLevel       = "log.level"
	KeyLogJSON        = "log.json"
	KeyLogFile        = "log.file"
	KeyHulyExport     = "huly-export"
	KeyBeadsJSONL     = "beads-jsonl"
)

// FileName is the config file name without extension.
const FileName = ".hbsync"

// EnvPrefix is prepended to upper-cased keys for environment overrides,
// e.g. HBSYNC_LOG_LEVEL.
const EnvPrefix = "HBSYNC"

var prefixRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// LogConfig selects the log format and destination.
type LogConfig struct {
	Level string
	JSON  bool
	File  string
}

// Config is the resolved hbsync configuration. Relative paths are resolved
// against Project by Load.
type Config struct {
	Project        string
	DB             string
	BeadsBin       string
	Prefix         string
	CommandTimeout time.Duration
	Log            LogConfig
	HulyExport     string
	BeadsJSONL     string
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Project:        ".",
		DB:             filepath.Join(".beads", "hbsync.db"),
		BeadsBin:       "bd",
		CommandTimeout: 30 * time.Second,
		Log:            LogConfig{Level: "info"},
		HulyExport:     "huly-issues.json",
		BeadsJSONL:     filepath.FromSlash(beadsjsonl.DefaultPath),
	}
}

// SetDefaults registers Default() on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyProject, d.Project)
	v.SetDefault(KeyDB, d.DB)
	v.SetDefault(KeyBeadsBin, d.BeadsBin)
	v.SetDefault(KeyPrefix, d.Prefix)
	v.SetDefault(KeyCommandTimeout, d.CommandTimeout)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogJSON, d.Log.JSON)
	v.SetDefault(KeyLogFile, d.Log.File)
	v.SetDefault(KeyHulyExport, d.HulyExport)
	v.SetDefault(KeyBeadsJSONL, d.BeadsJSONL)
}

// New returns a viper instance with defaults, environment binding, and the
// config search path (projectPath, then $HOME).
func New(projectPath string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if projectPath != "" {
		v.AddConfigPath(projectPath)
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if there is one and returns the merged
// configuration. A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{
		Project:        v.GetString(KeyProject),
		DB:             v.GetString(KeyDB),
		BeadsBin:       v.GetString(KeyBeadsBin),
		Prefix:         strings.TrimSuffix(strings.TrimSpace(v.GetString(KeyPrefix)), "-"),
		CommandTimeout: v.GetDuration(KeyCommandTimeout),
		Log: LogConfig{
			Level: v.GetString(KeyLogLevel),
			JSON:  v.GetBool(KeyLogJSON),
			File:  v.GetString(KeyLogFile),
		},
		HulyExport: v.GetString(KeyHulyExport),
		BeadsJSONL: v.GetString(KeyBeadsJSONL),
	}

	if cfg.Project == "" {
		cfg.Project = "."
	}
	cfg.DB = cfg.Resolve(cfg.DB)
	cfg.HulyExport = cfg.Resolve(cfg.HulyExport)
	cfg.BeadsJSONL = cfg.Resolve(cfg.BeadsJSONL)
	if cfg.Log.File != "" {
		cfg.Log.File = cfg.Resolve(cfg.Log.File)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve makes a relative path relative to the project directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Project, path)
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var problems []string

	if c.DB == "" {
		problems = append(problems, "db: path is required")
	}
	if c.BeadsBin == "" {
		problems = append(problems, "beads-bin: executable is required")
	}
	if c.Prefix != "" {
		if len(c.Prefix) > 20 {
			problems = append(problems, fmt.Sprintf("prefix: %q is too long (max 20 characters)", c.Prefix))
		}
		if !prefixRe.MatchString(c.Prefix) {
			problems = append(problems, fmt.Sprintf("prefix: %q is invalid (must start with letter, contain only letters, numbers, dashes, underscores)", c.Prefix))
		}
	}
	if c.CommandTimeout < 0 {
		problems = append(problems, fmt.Sprintf("command-timeout: %v must not be negative", c.CommandTimeout))
	}
	if c.Log.Level != "" && !validLogLevels[strings.ToLower(c.Log.Level)] {
		problems = append(problems, fmt.Sprintf("log.level: %q is invalid (valid values: debug, info, warn, error)", c.Log.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
