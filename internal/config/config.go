// Package config reads config.yaml from the configuration directory.
// The file is created with defaults on first run; a missing file is not an
// error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/cling/internal/logging"
	"github.com/mesh-intelligence/cling/internal/syncer"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// FileName is the config file created in the configuration directory.
	FileName = "config.yaml"
)

// Config keys.
const (
	KeyDataDir       = "data_dir"
	KeyMigrationsDir = "migrations_dir"
	KeySeed          = "seed"
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
	KeyLogFile       = "log.file"
	KeySyncSchedule  = "sync.schedule"
	KeySyncDebounce  = "sync.debounce"
	KeySyncPageSize  = "sync.page_size"
	KeySyncWatch     = "sync.watch"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# cling configuration

# Data directory (optional; overridable by --data-dir and CLING_DATA_DIR)
# data_dir:

# Directory of migration scripts; the built-in scripts are used when unset.
# migrations_dir:

# Load sample data into an empty database.
seed: true

log:
  level: info     # debug, info, warn, error
  format: text    # text or json
  # file: /path/to/cling.log

sync:
  schedule: "@every 5m"
  debounce: 2s
  page_size: 200
  watch: true

# The remote is configured from the environment:
# CLING_REMOTE_URL, CLING_REMOTE_KEY.
`

// Config is the resolved file configuration.
type Config struct {
	DataDir       string
	MigrationsDir string
	Seed          bool
	Log           logging.Options
	Sync          Sync
	// File is the path read, empty when no file was found.
	File string
}

// Sync holds the background sync settings.
type Sync struct {
	Schedule string
	Debounce time.Duration
	PageSize int
	Watch    bool
}

// Load reads config.yaml from configDir, creating the directory and a
// default file if they do not exist.
func Load(configDir string) (*Config, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeySeed, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logging.FormatText)
	v.SetDefault(KeySyncSchedule, syncer.DefaultSchedule)
	v.SetDefault(KeySyncDebounce, syncer.DefaultDebounce)
	v.SetDefault(KeySyncPageSize, syncer.DefaultPageSize)
	v.SetDefault(KeySyncWatch, true)
}

func fromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		DataDir:       v.GetString(KeyDataDir),
		MigrationsDir: v.GetString(KeyMigrationsDir),
		Seed:          v.GetBool(KeySeed),
		Log: logging.Options{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			File:   v.GetString(KeyLogFile),
		},
		Sync: Sync{
			Schedule: v.GetString(KeySyncSchedule),
			Debounce: v.GetDuration(KeySyncDebounce),
			PageSize: v.GetInt(KeySyncPageSize),
			Watch:    v.GetBool(KeySyncWatch),
		},
		File: v.ConfigFileUsed(),
	}
	if c.Sync.PageSize <= 0 {
		return nil, fmt.Errorf("config %s: must be positive, got %d", KeySyncPageSize, c.Sync.PageSize)
	}
	if c.Sync.Debounce < 0 {
		return nil, fmt.Errorf("config %s: must not be negative", KeySyncDebounce)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return nil, fmt.Errorf("config %s: %w", KeyLogLevel, err)
	}
	if c.MigrationsDir != "" && !filepath.IsAbs(c.MigrationsDir) && c.File != "" {
		c.MigrationsDir = filepath.Join(filepath.Dir(c.File), c.MigrationsDir)
	}
	return c, nil
}

func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile writes defaultConfigYAML unless config.yaml exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, FileName)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
