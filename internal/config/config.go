package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Roux configuration, loaded from
// <root>/.roux.yaml and layered with environment overrides.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Watcher    WatcherConfig    `yaml:"watcher" json:"watcher"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Vector     VectorConfig     `yaml:"vector" json:"vector"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// PathsConfig configures the source root and which files within it are tracked.
type PathsConfig struct {
	// Root is the vault directory to scan and watch. Defaults to the
	// directory containing .roux.yaml.
	Root string `yaml:"root" json:"root"`
	// Include lists glob patterns for files to track. It is loaded and
	// saved with the config, but scans do not read it: they yield every
	// file with a registered reader extension.
	Include []string `yaml:"include" json:"include"`
	// Exclude lists glob patterns for files to skip. It is loaded and saved
	// with the config, but scans do not read it: they skip only the fixed
	// exclusion set (.roux, node_modules, .git, .obsidian).
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// WatcherConfig configures filesystem-event coalescing.
type WatcherConfig struct {
	// Debounce is how long the watcher waits after the last event on a
	// path before emitting a coalesced add/change/unlink (default 1s).
	Debounce string `yaml:"debounce" json:"debounce"`
	// GracePeriod is how long an unlink is held as pending before it is
	// treated as a real delete, giving a matching add a chance to arrive
	// and turn the pair into a rename (default 5s).
	GracePeriod string `yaml:"grace_period" json:"grace_period"`
	// PollInterval is the polling period the watcher uses when fsnotify
	// cannot be started; polling never runs alongside fsnotify. Zero means
	// the watcher's default of 5s.
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// DebounceDuration parses Debounce, falling back to 1s.
func (w WatcherConfig) DebounceDuration() time.Duration {
	return parseDurationOr(w.Debounce, time.Second)
}

// GracePeriodDuration parses GracePeriod, falling back to 5s.
func (w WatcherConfig) GracePeriodDuration() time.Duration {
	return parseDurationOr(w.GracePeriod, 5*time.Second)
}

// PollIntervalDuration parses PollInterval, falling back to 0 (the watcher
// then uses its 5s default).
func (w WatcherConfig) PollIntervalDuration() time.Duration {
	return parseDurationOr(w.PollInterval, 0)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// EmbeddingsConfig describes an embedder and the vector shape it produces;
// it does not configure model execution, which lives behind the Embedder
// interface. The CLI does not read these fields: it always registers the
// built-in static embedder.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
}

// VectorConfig configures the vector index.
type VectorConfig struct {
	// Metric is the similarity function used by search (only "cosine" is
	// currently supported).
	Metric string `yaml:"metric" json:"metric"`
	// Quantization names a stored vector precision ("f32" or "f16"). The
	// vector index does not read it.
	Quantization string `yaml:"quantization" json:"quantization"`
}

// ServerConfig configures the MCP server surface.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: nil,
			Exclude: nil,
		},
		Watcher: WatcherConfig{
			Debounce:    "1s",
			GracePeriod: "5s",
			PollInterval: "",
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "",
			Model:      "",
			Dimensions: 0,
			BatchSize:  32,
		},
		Vector: VectorConfig{
			Metric:       "cosine",
			Quantization: "f32",
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      0,
			LogLevel:  "info",
		},
	}
}

// ConfigFileName is the per-vault configuration file name.
const ConfigFileName = ".roux.yaml"

// Load loads configuration for the vault rooted at dir, applying defaults,
// the project config file, then environment overrides, in increasing order
// of precedence.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if cfg.Paths.Root == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root: %w", err)
		}
		cfg.Paths.Root = abs
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from <dir>/.roux.yaml.
func (c *Config) loadFromFile(dir string) error {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return c.loadYAML(path)
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.Root != "" {
		c.Paths.Root = other.Paths.Root
	}
	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = other.Paths.Exclude
	}

	if other.Watcher.Debounce != "" {
		c.Watcher.Debounce = other.Watcher.Debounce
	}
	if other.Watcher.GracePeriod != "" {
		c.Watcher.GracePeriod = other.Watcher.GracePeriod
	}
	if other.Watcher.PollInterval != "" {
		c.Watcher.PollInterval = other.Watcher.PollInterval
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}

	if other.Vector.Metric != "" {
		c.Vector.Metric = other.Vector.Metric
	}
	if other.Vector.Quantization != "" {
		c.Vector.Quantization = other.Vector.Quantization
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies ROUX_* environment variable overrides, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ROUX_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("ROUX_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("ROUX_WATCH_DEBOUNCE"); v != "" {
		c.Watcher.Debounce = v
	}
	if v := os.Getenv("ROUX_WATCH_GRACE_PERIOD"); v != "" {
		c.Watcher.GracePeriod = v
	}
	if v := os.Getenv("ROUX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("ROUX_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("ROUX_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
}

// FindProjectRoot finds the vault root by walking up from startDir looking
// for .roux.yaml or a .git directory, falling back to startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, ConfigFileName)) {
			return currentDir, nil
		}
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(orDefault(c.Watcher.Debounce, "1s")); err != nil {
		return fmt.Errorf("watcher.debounce must be a valid duration, got %q", c.Watcher.Debounce)
	}
	if _, err := time.ParseDuration(orDefault(c.Watcher.GracePeriod, "5s")); err != nil {
		return fmt.Errorf("watcher.grace_period must be a valid duration, got %q", c.Watcher.GracePeriod)
	}

	if c.Embeddings.Provider != "" && c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}

	validMetrics := map[string]bool{"cosine": true}
	if !validMetrics[strings.ToLower(c.Vector.Metric)] {
		return fmt.Errorf("vector.metric must be 'cosine', got %s", c.Vector.Metric)
	}

	validQuantizations := map[string]bool{"f32": true, "f16": true}
	if !validQuantizations[strings.ToLower(c.Vector.Quantization)] {
		return fmt.Errorf("vector.quantization must be 'f32' or 'f16', got %s", c.Vector.Quantization)
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
