package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Supported config file formats.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// fileConfig is the on-disk shape; durations are written as strings.
type fileConfig struct {
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	API     struct {
		BaseURL string `yaml:"base_url" toml:"base_url"`
		Timeout string `yaml:"timeout" toml:"timeout"`
		Retries int    `yaml:"retries" toml:"retries"`
	} `yaml:"api" toml:"api"`
	Server ServerConfig `yaml:"server" toml:"server"`
	Inbox  InboxConfig  `yaml:"inbox" toml:"inbox"`
	Backup BackupConfig `yaml:"backup" toml:"backup"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// Marshal renders c in the given format.
func Marshal(c *Config, format string) ([]byte, error) {
	var fc fileConfig
	fc.Storage = c.Storage
	fc.API.BaseURL = c.API.BaseURL
	fc.API.Timeout = c.API.Timeout.String()
	fc.API.Retries = c.API.Retries
	fc.Server = c.Server
	fc.Inbox = c.Inbox
	fc.Backup = c.Backup
	fc.Log = c.Log

	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(fc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return data, nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(fc); err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q (want yaml or toml)", format)
	}
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// WriteDefault writes DefaultConfig to path. It refuses to overwrite an
// existing file unless force is set.
func WriteDefault(path, format string, force bool) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := Marshal(DefaultConfig(), format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
