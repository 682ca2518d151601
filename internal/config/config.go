// Package config provides configuration management for the poolfs daemon.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ajaxzhan/poolfs/internal/policy"
	"github.com/ajaxzhan/poolfs/pkg/types"
)

// Config represents the complete daemon configuration.
type Config struct {
	MountPoint   string            `yaml:"mountpoint" validate:"required"`
	FsName       string            `yaml:"fsname"`
	Branches     []BranchConfig    `yaml:"branches" validate:"required,min=1,dive"`
	Policies     PoliciesConfig    `yaml:"policies"`
	Funcs        map[string]string `yaml:"funcs"`
	MinFreeSpace string            `yaml:"minfreespace"`
	Cache        CacheConfig       `yaml:"cache"`
	Logging      LoggingConfig     `yaml:"logging"`
}

// BranchConfig describes one branch of the pool.
type BranchConfig struct {
	Path         string `yaml:"path" validate:"required"`
	Mode         string `yaml:"mode" validate:"required,oneof=RW RO NC"`
	MinFreeSpace string `yaml:"minfreespace"`
}

// PoliciesConfig holds the per-category policy defaults. Individual
// operations can be overridden through the top-level funcs map.
type PoliciesConfig struct {
	Create string `yaml:"create" validate:"required"`
	Action string `yaml:"action" validate:"required"`
	Search string `yaml:"search" validate:"required"`
}

// CacheConfig holds statfs cache configuration.
type CacheConfig struct {
	StatfsTimeout string `yaml:"statfs_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FsName: "poolfs",
		Policies: PoliciesConfig{
			Create: "epmfs",
			Action: "epall",
			Search: "ff",
		},
		Cache: CacheConfig{
			StatfsTimeout: "1s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks structural constraints and that every referenced
// policy resolves in the registry.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, name := range []string{c.Policies.Create, c.Policies.Action, c.Policies.Search} {
		if _, err := policy.Lookup(name); err != nil {
			return fmt.Errorf("invalid config: policy %q: %w", name, err)
		}
	}
	for op, name := range c.Funcs {
		if _, err := policy.Lookup(name); err != nil {
			return fmt.Errorf("invalid config: funcs.%s: policy %q: %w", op, name, err)
		}
	}

	if _, err := c.BranchSet(); err != nil {
		return err
	}
	if _, err := c.GetMinFreeSpace(); err != nil {
		return err
	}
	if _, err := c.GetStatfsTimeout(); err != nil {
		return err
	}
	return nil
}

// BranchSet converts the configured branches into domain branches.
func (c *Config) BranchSet() ([]types.Branch, error) {
	vec := make([]types.Branch, 0, len(c.Branches))
	for _, bc := range c.Branches {
		mode, err := types.ParseBranchMode(bc.Mode)
		if err != nil {
			return nil, &types.BranchError{Path: bc.Path, Op: "configure", Err: err}
		}
		minfree, err := ParseSize(bc.MinFreeSpace)
		if err != nil {
			return nil, &types.BranchError{Path: bc.Path, Op: "configure", Err: err}
		}
		vec = append(vec, types.Branch{
			Path:         bc.Path,
			Mode:         mode,
			MinFreeSpace: minfree,
		})
	}
	return vec, nil
}

// GetMinFreeSpace returns the global create reserve in bytes.
func (c *Config) GetMinFreeSpace() (uint64, error) {
	return ParseSize(c.MinFreeSpace)
}

// GetStatfsTimeout returns the statfs cache TTL as a time.Duration.
func (c *CacheConfig) GetStatfsTimeout() (time.Duration, error) {
	if c.StatfsTimeout == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(c.StatfsTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid statfs_timeout: %w", err)
	}
	return d, nil
}

// GetStatfsTimeout returns the statfs cache TTL.
func (c *Config) GetStatfsTimeout() (time.Duration, error) {
	return c.Cache.GetStatfsTimeout()
}

// ParseSize parses a byte count with an optional binary suffix
// (K, M, G or T, optionally followed by B). An empty string is zero.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	mult := uint64(1)
	upper := strings.TrimSuffix(strings.ToUpper(s), "B")
	switch {
	case strings.HasSuffix(upper, "K"):
		mult = 1 << 10
		upper = strings.TrimSuffix(upper, "K")
	case strings.HasSuffix(upper, "M"):
		mult = 1 << 20
		upper = strings.TrimSuffix(upper, "M")
	case strings.HasSuffix(upper, "G"):
		mult = 1 << 30
		upper = strings.TrimSuffix(upper, "G")
	case strings.HasSuffix(upper, "T"):
		mult = 1 << 40
		upper = strings.TrimSuffix(upper, "T")
	}

	n, err := strconv.ParseUint(upper, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidSizeSpec, s)
	}
	return n * mult, nil
}
