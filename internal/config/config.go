// Package config reads the tangodb configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Defaults.
const (
	DefaultIdentity         = "2"
	DefaultLogLevel         = "info"
	DefaultSnapshotInterval = "1s"
)

// Config is the decoded configuration file. Zero fields take defaults.
type Config struct {
	Identity    string    `hcl:"identity,optional"`
	DBPath      string    `hcl:"db_path,optional"`
	LogLevel    string    `hcl:"log_level,optional"`
	Watch       bool      `hcl:"watch,optional"`
	MetricsAddr string    `hcl:"metrics_addr,optional"`
	Snapshot    *Snapshot `hcl:"snapshot,block"`
}

// Snapshot configures the background snapshot writer.
type Snapshot struct {
	Path     string `hcl:"path"`
	Interval string `hcl:"interval,optional"`
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{Identity: DefaultIdentity, LogLevel: DefaultLogLevel}
}

// Load decodes the HCL file at path over the defaults. A missing path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Parse decodes HCL source; filename is used in diagnostics.
func Parse(filename string, src []byte) (Config, error) {
	var cfg Config
	if !strings.HasSuffix(filename, ".hcl") {
		filename += ".hcl"
	}
	if err := hclsimple.Decode(filename, src, nil, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Identity == "" {
		cfg.Identity = DefaultIdentity
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be expressed in the schema.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.Contains(c.Identity, "/") {
		return fmt.Errorf("identity %q must not contain '/'", c.Identity)
	}
	if c.Snapshot != nil {
		if c.Snapshot.Path == "" {
			return errors.New("snapshot block needs a path")
		}
		if _, err := c.SnapshotInterval(); err != nil {
			return err
		}
	}
	return nil
}

// SnapshotInterval returns the flush interval of the snapshot writer.
func (c Config) SnapshotInterval() (time.Duration, error) {
	s := DefaultSnapshotInterval
	if c.Snapshot != nil && c.Snapshot.Interval != "" {
		s = c.Snapshot.Interval
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("snapshot interval %q is not a positive duration", s)
	}
	return d, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}
