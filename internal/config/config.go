// Package config loads rewardbook settings from a config file, the
// environment and command-line flags through viper.
//
// Lookup order for the file is ./rewardbook.{yaml,toml} and then
// <user config dir>/rewardbook/. Every key can be overridden with a
// REWARDBOOK_ variable, dots replaced by underscores
// (REWARDBOOK_STORAGE_BACKEND=sqlite). A .env file in the working directory
// is loaded first.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/studyreward/rewardbook/internal/backup"
	"github.com/studyreward/rewardbook/internal/storage"
)

// Name is the config file base name and the env prefix.
const Name = "rewardbook"

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	Dir     string `yaml:"dir" toml:"dir"`
}

// APIConfig points the CLI at a running server instead of local storage.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	Retries int           `yaml:"retries" toml:"retries"`
}

// ServerConfig configures "rb serve".
type ServerConfig struct {
	Addr    string `yaml:"addr" toml:"addr"`
	Metrics bool   `yaml:"metrics" toml:"metrics"`
}

// InboxConfig enables the import inbox when Dir is set.
type InboxConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// BackupConfig enables scheduled snapshots when Schedule is set.
type BackupConfig struct {
	Schedule string `yaml:"schedule" toml:"schedule"`
	Dir      string `yaml:"dir" toml:"dir"`
	Keep     int    `yaml:"keep" toml:"keep"`
}

// LogConfig sends logs to a rotating file when File is set.
type LogConfig struct {
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
}

// Config is the typed configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	API     APIConfig     `yaml:"api" toml:"api"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Inbox   InboxConfig   `yaml:"inbox" toml:"inbox"`
	Backup  BackupConfig  `yaml:"backup" toml:"backup"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// DefaultDataDir is <user config dir>/rewardbook, or ./.rewardbook when the
// user config dir is unknown.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".rewardbook"
	}
	return filepath.Join(dir, Name)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Backend: storage.BackendFile, Dir: DefaultDataDir()},
		API:     APIConfig{Timeout: 30 * time.Second, Retries: 2},
		Server:  ServerConfig{Addr: ":8080", Metrics: true},
		Backup:  BackupConfig{Keep: backup.DefaultKeep},
		Log:     LogConfig{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
	}
}

// SetDefaults registers DefaultConfig on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.retries", d.API.Retries)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.metrics", d.Server.Metrics)
	v.SetDefault("inbox.dir", d.Inbox.Dir)
	v.SetDefault("backup.schedule", d.Backup.Schedule)
	v.SetDefault("backup.dir", d.Backup.Dir)
	v.SetDefault("backup.keep", d.Backup.Keep)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
}

// Init prepares v: defaults, env binding and the config file. cfgFile, when
// set, is used instead of the search path. A missing config file is not an
// error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(Name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, Name))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// LoadEnv loads KEY=value pairs from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the typed config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Backend: v.GetString("storage.backend"),
			Dir:     v.GetString("storage.dir"),
		},
		API: APIConfig{
			BaseURL: v.GetString("api.base_url"),
			Timeout: v.GetDuration("api.timeout"),
			Retries: v.GetInt("api.retries"),
		},
		Server: ServerConfig{
			Addr:    v.GetString("server.addr"),
			Metrics: v.GetBool("server.metrics"),
		},
		Inbox: InboxConfig{
			Dir: v.GetString("inbox.dir"),
		},
		Backup: BackupConfig{
			Schedule: v.GetString("backup.schedule"),
			Dir:      v.GetString("backup.dir"),
			Keep:     v.GetInt("backup.keep"),
		},
		Log: LogConfig{
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
	}
	if cfg.Backup.Schedule != "" && cfg.Backup.Dir == "" {
		cfg.Backup.Dir = filepath.Join(cfg.Storage.Dir, "backups")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", storage.BackendFile, storage.BackendSQLite, c.Storage.Backend)
	}
	if c.Storage.Backend != storage.BackendMemory && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	if c.API.BaseURL != "" && !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("api.retries cannot be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Backup.Schedule != "" {
		if err := backup.ValidateSchedule(c.Backup.Schedule); err != nil {
			return err
		}
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep cannot be negative")
	}
	return nil
}
