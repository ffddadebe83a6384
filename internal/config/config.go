package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"shredder/internal/gitcheck"
	"shredder/internal/logging"
	"shredder/pkg/shred"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "shredder" // application name used for the config directory

// AppVersion is the release version, set at build time with
// -ldflags "-X shredder/internal/config.AppVersion=...".
var AppVersion = "dev"

const (
	// DefaultPasses is the number of random rounds used when none is configured.
	DefaultPasses = 3
	// MaxPasses bounds configured pass counts; more rounds add time, not safety.
	MaxPasses = 35
	// MaxBlockSize bounds the write block size.
	MaxBlockSize = 16 << 20

	currentVersion = "1.0"
)

// Config holds user defaults for shredder. Command line flags override them.
type Config struct {
	// Passes is the number of random overwrite rounds before the zero round.
	Passes int `yaml:"passes"`
	// BlockSize is the number of bytes written per I/O call.
	BlockSize int `yaml:"block_size"`
	// Confirm asks before destroying files.
	Confirm bool `yaml:"confirm"`
	// GitCheck is the policy for files whose contents live on in git history:
	// warn, refuse or off.
	GitCheck string `yaml:"git_check"`
	// RemoveEmptyDirs deletes directories emptied by a recursive shred.
	RemoveEmptyDirs bool `yaml:"remove_empty_dirs"`
	// Jobs is the number of files shredded at the same time.
	Jobs    int    `yaml:"jobs"`
	Version string `yaml:"version"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Passes:          DefaultPasses,
		BlockSize:       shred.DefaultBlockSize,
		Confirm:         true,
		GitCheck:        string(gitcheck.PolicyWarn),
		RemoveEmptyDirs: true,
		Jobs:            1,
		Version:         currentVersion,
	}
}

// ConfigPath returns the config file location for the current platform
func ConfigPath() string {
	configPath := filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")
	logging.Debug("Determined config path", "path", configPath)
	return configPath
}

// Load reads the config from the standard location.
// A missing file is not an error: defaults are returned.
func Load() (*Config, error) {
	path := ConfigPath()
	cfg, err := LoadFrom(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Debug("No config file, using defaults", "path", path)
		def := DefaultConfig()
		return &def, nil
	}
	return cfg, err
}

// LoadFrom reads config from a specific path. Keys missing from the file keep
// their default values.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Passes < shred.MinPasses || c.Passes > MaxPasses {
		return fmt.Errorf("passes must be between %d and %d, got %d", shred.MinPasses, MaxPasses, c.Passes)
	}
	if c.BlockSize < 1 || c.BlockSize > MaxBlockSize {
		return fmt.Errorf("block_size must be between 1 and %d, got %d", MaxBlockSize, c.BlockSize)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if _, err := gitcheck.ParsePolicy(c.GitCheck); err != nil {
		return fmt.Errorf("git_check: %w", err)
	}
	return nil
}

// GitPolicy returns the parsed git_check value. Call Validate first; an
// unknown value falls back to warn.
func (c *Config) GitPolicy() gitcheck.Policy {
	p, err := gitcheck.ParsePolicy(c.GitCheck)
	if err != nil {
		return gitcheck.PolicyWarn
	}
	return p
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config to a specific path with 0600 permissions
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Version == "" {
		c.Version = currentVersion
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logging.Info("Configuration saved", "path", path)
	return nil
}
