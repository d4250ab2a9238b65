package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/panbanda/deadwood/pkg/analyzer/entrypoint"
	"github.com/panbanda/deadwood/pkg/analyzer/reachability"
	"github.com/panbanda/deadwood/pkg/analyzer/reflection"
)

// Config holds all configuration options.
type Config struct {
	// Analysis controls the reachability pipeline
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Input controls which files are treated as units
	Input InputConfig `koanf:"input" toml:"input"`

	// Exclude patterns for directory scans
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings for decoded units
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// AnalysisConfig controls the analysis phases.
type AnalysisConfig struct {
	Mode        string   `koanf:"mode" toml:"mode"`                 // union or simple
	EntryPoints []string `koanf:"entry_points" toml:"entry_points"` // enabled entry point policies
	Reflection  string   `koanf:"reflection" toml:"reflection"`     // names or none
	DeadBlocks  bool     `koanf:"dead_blocks" toml:"dead_blocks"`
	Cycles      bool     `koanf:"cycles" toml:"cycles"`
	Workers     int      `koanf:"workers" toml:"workers"` // decode workers, 0 = 2x NumCPU
}

// InputConfig selects unit files.
type InputConfig struct {
	Extensions  []string `koanf:"extensions" toml:"extensions"`
	Archives    []string `koanf:"archives" toml:"archives"`
	MaxUnitSize int64    `koanf:"max_unit_size" toml:"max_unit_size"` // bytes, 0 = no limit
}

// ExcludeConfig defines paths skipped while scanning directories.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls the decoded unit cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon, html
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Mode:        string(reachability.ModeUnion),
			EntryPoints: entrypoint.PolicyNames(),
			Reflection:  reflection.StrategyNames,
			DeadBlocks:  true,
			Cycles:      true,
			Workers:     0,
		},
		Input: InputConfig{
			Extensions: []string{".json", ".yaml", ".yml"},
			Archives:   []string{".zip", ".jar"},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.schema.json",
				"package.json",
				"deadwood.*",
				".deadwood.*",
			},
			Dirs: []string{
				".git",
				".deadwood",
				"node_modules",
				"vendor",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".deadwood/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// configNames are searched, in order, in the current directory and in
// .deadwood.
var configNames = []string{
	"deadwood.toml",
	"deadwood.yaml",
	"deadwood.yml",
	"deadwood.json",
	".deadwood.toml",
	".deadwood.yaml",
	".deadwood.yml",
	".deadwood.json",
}

// Find returns the first config file found in the standard locations.
func Find() (string, bool) {
	for _, dir := range []string{".", ".deadwood"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}
	}
	return "", false
}

// LoadOrDefault loads the first config found in the standard locations, or
// returns defaults.
func LoadOrDefault() *Config {
	if path, ok := Find(); ok {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

var validFormats = []string{"text", "json", "markdown", "toon", "html"}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := reachability.ParseMode(c.Analysis.Mode); err != nil {
		errs = append(errs, fmt.Errorf("analysis.mode: %w", err))
	}
	if _, err := entrypoint.PoliciesByName(c.Analysis.EntryPoints); err != nil {
		errs = append(errs, fmt.Errorf("analysis.entry_points: %w", err))
	}
	if _, err := reflection.StrategyByName(c.Analysis.Reflection); err != nil {
		errs = append(errs, fmt.Errorf("analysis.reflection: %w", err))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers: must be >= 0, got %d", c.Analysis.Workers))
	}
	if len(c.Input.Extensions) == 0 && len(c.Input.Archives) == 0 {
		errs = append(errs, errors.New("input: at least one extension or archive type is required"))
	}
	if c.Input.MaxUnitSize < 0 {
		errs = append(errs, fmt.Errorf("input.max_unit_size: must be >= 0, got %d", c.Input.MaxUnitSize))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl: must be > 0 when the cache is enabled, got %d", c.Cache.TTL))
	}
	if !contains(validFormats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format: unknown format %q (valid: %s)", c.Output.Format, strings.Join(validFormats, ", ")))
	}
	return errors.Join(errs...)
}

// ShouldExclude checks if a path should be skipped during a directory scan.
func (c *Config) ShouldExclude(path string) bool {
	sep := string(filepath.Separator)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, sep+dir+sep) || strings.HasPrefix(path, dir+sep) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// IsUnit reports whether path has a unit file extension.
func (c *Config) IsUnit(path string) bool {
	return contains(c.Input.Extensions, strings.ToLower(filepath.Ext(path)))
}

// IsArchive reports whether path has an archive extension.
func (c *Config) IsArchive(path string) bool {
	return contains(c.Input.Archives, strings.ToLower(filepath.Ext(path)))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
