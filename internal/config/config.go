// Package config loads the findex service configuration from YAML with
// environment variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the findex API configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Logging      LoggingConfig      `yaml:"logging"`
	Auth         AuthConfig         `yaml:"auth"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Semantic     SemanticConfig     `yaml:"semantic_endpoint"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Cache        CacheConfig        `yaml:"cache"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Resilience   ResilienceConfig   `yaml:"resilience"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds the persistent cache tier connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds the document store connection settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// SemanticConfig holds the remote semantic endpoint settings.
type SemanticConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutMS  int    `yaml:"timeout_ms"`
	Disabled   bool   `yaml:"disabled"`
	RatePerSec int    `yaml:"rate_per_sec"`
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// CacheConfig holds multi-tier cache settings.
type CacheConfig struct {
	MemoryMaxEntries     int             `yaml:"memory_max_entries"`
	MemoryMaxBytes       int             `yaml:"memory_max_bytes"`
	MemoryTTLSec         int             `yaml:"memory_ttl_sec"`
	PersistentTTLSec     int             `yaml:"persistent_ttl_sec"`
	PredictiveMaxEntries int             `yaml:"predictive_max_entries"`
	PredictiveTTLSec     int             `yaml:"predictive_ttl_sec"`
	CompressThreshold    int             `yaml:"compress_threshold_bytes"`
	KeyPrefix            string          `yaml:"key_prefix"`
	Eviction             EvictionWeights `yaml:"eviction_weights"`
}

// EvictionWeights mirrors the cache eviction score weights.
type EvictionWeights struct {
	Age         float64 `yaml:"age"`
	AccessCount float64 `yaml:"access_count"`
	Frequency   float64 `yaml:"frequency"`
	Size        float64 `yaml:"size"`
	Quality     float64 `yaml:"quality"`
	Priority    float64 `yaml:"priority"`
}

// OrchestratorConfig holds strategy orchestration settings.
type OrchestratorConfig struct {
	RaceWindowMS       int     `yaml:"race_window_ms"`
	RelaxFactor        float64 `yaml:"relax_factor"`
	PrefetchCandidates int     `yaml:"prefetch_candidates"`
}

// DependencyConfig holds one dependency's resilient caller settings.
type DependencyConfig struct {
	TimeoutMS        int `yaml:"timeout_ms"`
	MaxConcurrent    int `yaml:"max_concurrent"`
	RetryAttempts    int `yaml:"retry_attempts"`
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownSec      int `yaml:"cooldown_sec"`
}

// ResilienceConfig holds per-dependency caller settings.
type ResilienceConfig struct {
	Semantic DependencyConfig `yaml:"semantic"`
	Database DependencyConfig `yaml:"database"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Postgres.MinConns <= 0 {
		c.Postgres.MinConns = 2
	}
	if c.Semantic.TimeoutMS <= 0 {
		c.Semantic.TimeoutMS = 5000
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "findex:"
	}
	if c.Orchestrator.RaceWindowMS <= 0 {
		c.Orchestrator.RaceWindowMS = 150
	}
	if c.Orchestrator.RelaxFactor <= 0 || c.Orchestrator.RelaxFactor > 1 {
		c.Orchestrator.RelaxFactor = 0.5
	}
	applyDependencyDefaults(&c.Resilience.Semantic, 5000)
	applyDependencyDefaults(&c.Resilience.Database, 2000)
}

func applyDependencyDefaults(d *DependencyConfig, timeoutMS int) {
	if d.TimeoutMS <= 0 {
		d.TimeoutMS = timeoutMS
	}
	if d.MaxConcurrent <= 0 {
		d.MaxConcurrent = 32
	}
	if d.RetryAttempts <= 0 {
		d.RetryAttempts = 3
	}
	if d.FailureThreshold <= 0 {
		d.FailureThreshold = 3
	}
	if d.CooldownSec <= 0 {
		d.CooldownSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if !c.Semantic.Disabled && c.Semantic.BaseURL == "" {
		return fmt.Errorf("semantic_endpoint.base_url is required unless disabled")
	}
	if c.Orchestrator.RelaxFactor <= 0 || c.Orchestrator.RelaxFactor > 1 {
		return fmt.Errorf("orchestrator.relax_factor must be in (0,1], got %g",
			c.Orchestrator.RelaxFactor)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
