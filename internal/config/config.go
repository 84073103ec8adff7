package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/hmans/speako/internal/logging"
	"github.com/hmans/speako/internal/recordstore"
)

const ConfigFile = "speako.toml"

// Config holds the speako configuration.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Store    StoreConfig    `toml:"store"`
	Resolver ResolverConfig `toml:"resolver"`
	Log      LogConfig      `toml:"log"`
}

// DataConfig points at the schema and seed dataset. Empty paths select the
// built-in album sample. Relative paths are resolved against the directory
// the config was loaded from.
type DataConfig struct {
	Schema  string `toml:"schema,omitempty"`
	Dataset string `toml:"dataset,omitempty"`
}

// StoreConfig defines record store behavior.
type StoreConfig struct {
	IDPolicy string `toml:"id_policy"`
}

// ResolverConfig defines which operations the resolver serves.
type ResolverConfig struct {
	// Deletable lists the types delete is allowed on. Empty allows every type.
	Deletable []string `toml:"deletable,omitempty"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			IDPolicy: recordstore.IDPolicyLength.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the given directory.
// Returns default config if the file doesn't exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	return parse(data, dir)
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data, filepath.Dir(path))
}

func parse(data []byte, dir string) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
	}

	// Apply defaults for missing values
	if cfg.Store.IDPolicy == "" {
		cfg.Store.IDPolicy = recordstore.IDPolicyLength.String()
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	cfg.Data.Schema = resolvePath(dir, cfg.Data.Schema)
	cfg.Data.Dataset = resolvePath(dir, cfg.Data.Dataset)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Save writes the configuration to the given directory.
func (c *Config) Save(dir string) error {
	path := filepath.Join(dir, ConfigFile)

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	if _, err := c.IDPolicy(); err != nil {
		return fmt.Errorf("store.id_policy: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// IDPolicy returns the configured identifier assignment policy.
func (c *Config) IDPolicy() (recordstore.IDPolicy, error) {
	return recordstore.ParseIDPolicy(c.Store.IDPolicy)
}

// IsDeletable returns true if delete is allowed on the given type.
func (c *Config) IsDeletable(typename string) bool {
	if len(c.Resolver.Deletable) == 0 {
		return true
	}
	return slices.Contains(c.Resolver.Deletable, typename)
}
