// Package config loads the taskstate YAML configuration.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/hashing"
	"github.com/twitter/taskstate/history"
	"github.com/twitter/taskstate/tree"
	"github.com/twitter/taskstate/uptodate"
)

const DefaultCacheDir = ".taskstate"

type Config struct {
	CacheDir string `yaml:"cache_dir"`
	// LongLived keeps an in-memory copy of the caches between batches,
	// invalidated whenever another process wrote to the store.
	LongLived bool   `yaml:"long_lived"`
	Hasher    string `yaml:"hasher"`
	// CacheFileHashes remembers file hashes by path, length and mtime.
	CacheFileHashes bool `yaml:"cache_file_hashes"`
	// 0 sizes the tree cache from available memory.
	TreeCacheSize int `yaml:"tree_cache_size"`
	// In-memory entries per cache name, used when LongLived.
	Capacities         map[string]int `yaml:"capacities"`
	LockPollInterval   string         `yaml:"lock_poll_interval"` // parsed to a time.Duration
	HistorySize        int            `yaml:"history_size"`
	MaxReportedChanges int            `yaml:"max_reported_changes"`
}

func Default() *Config {
	return &Config{
		CacheDir:           DefaultCacheDir,
		Hasher:             hashing.SHA256,
		CacheFileHashes:    true,
		Capacities:         cache.DefaultCapacities(),
		LockPollInterval:   cache.DefaultLockPollInterval.String(),
		HistorySize:        history.MaxExecutions,
		MaxReportedChanges: uptodate.DefaultMaxReportedChanges,
	}
}

// Load reads path over the defaults and validates the result. An empty path
// gives the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, cfg)
}

// Parse unmarshals data over cfg and validates the result.
func Parse(data []byte, cfg *Config) (*Config, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// ValidationError holds every validation failure.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func Validate(cfg *Config) []string {
	var errs []string
	if cfg.CacheDir == "" {
		errs = append(errs, "'cache_dir' is required")
	}
	if _, err := hashing.NewHasher(cfg.Hasher, nil); err != nil {
		errs = append(errs, fmt.Sprintf("'hasher': %v, want %s or %s", err, hashing.SHA256, hashing.XXHash))
	}
	if cfg.TreeCacheSize < 0 {
		errs = append(errs, fmt.Sprintf("'tree_cache_size' must not be negative, got %d", cfg.TreeCacheSize))
	}
	names := make([]string, 0, len(cfg.Capacities))
	for name := range cfg.Capacities {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !knownCache(name) {
			errs = append(errs, fmt.Sprintf("'capacities': unknown cache '%s'", name))
		} else if cfg.Capacities[name] <= 0 {
			errs = append(errs, fmt.Sprintf("'capacities': cache '%s' needs a positive capacity, got %d", name, cfg.Capacities[name]))
		}
	}
	if d, err := time.ParseDuration(cfg.LockPollInterval); err != nil {
		errs = append(errs, fmt.Sprintf("'lock_poll_interval': %v", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Sprintf("'lock_poll_interval' must be positive, got %s", d))
	}
	if cfg.HistorySize != history.MaxExecutions {
		errs = append(errs, fmt.Sprintf("'history_size' is fixed at %d, got %d", history.MaxExecutions, cfg.HistorySize))
	}
	if cfg.MaxReportedChanges < 1 {
		errs = append(errs, fmt.Sprintf("'max_reported_changes' must be at least 1, got %d", cfg.MaxReportedChanges))
	}
	return errs
}

// PollInterval is LockPollInterval parsed. Only valid after Validate.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.LockPollInterval)
	if err != nil {
		return cache.DefaultLockPollInterval
	}
	return d
}

func (c *Config) TreeCacheEntries() int {
	if c.TreeCacheSize == 0 {
		return tree.DefaultCacheSize()
	}
	return c.TreeCacheSize
}

func knownCache(name string) bool {
	switch name {
	case cache.FileHashesCache, cache.FileSnapshotsCache, cache.OutputFileStatesCache, cache.TaskHistoryCache:
		return true
	}
	return false
}
