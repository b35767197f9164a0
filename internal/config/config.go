package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the citeqa service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Generation GenerationConfig `yaml:"generation"`
	Retry      RetryConfig      `yaml:"retry"`
	Decomposer DecomposerConfig `yaml:"decomposer"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Logging    LoggingConfig    `yaml:"logging"`
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
	MaxBodyBytes    int `yaml:"max_body_bytes"`
}

// Storage drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// StorageConfig holds document storage settings.
type StorageConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, badger, sqlite, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Path             string   `yaml:"path"` // badger directory or sqlite file
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// Generation providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// GenerationConfig holds answer provider settings. An empty api_key degrades
// answering to the "not configured" response instead of failing startup.
type GenerationConfig struct {
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	Streaming         bool    `yaml:"streaming"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// RetryConfig holds retry orchestrator settings.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms"`
}

// DecomposerConfig holds chunking settings.
type DecomposerConfig struct {
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
	OverlapSentences  int `yaml:"overlap_sentences"`
	MaxChunkChars     int `yaml:"max_chunk_chars"`
}

// Retrieval strategies.
const (
	StrategyKeyword  = "keyword"
	StrategySemantic = "semantic"
	StrategyHybrid   = "hybrid"
)

// RetrievalConfig holds concept search settings.
type RetrievalConfig struct {
	Strategy      string          `yaml:"strategy"` // keyword, semantic, hybrid (default: keyword)
	MaxSources    int             `yaml:"max_sources"`
	MinScore      float64         `yaml:"min_score"`
	TermExpansion *bool           `yaml:"term_expansion"` // default: on for keyword
	Embedding     EmbeddingConfig `yaml:"embedding"`
}

// EmbeddingConfig holds embedding provider settings for semantic retrieval.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	Instruction string `yaml:"query_instruction"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // valkey/redis only; 0 = no expiry
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// An optional .env file is loaded first so ${VAR} references can use it.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.WriteTimeoutSec = 120 // answers include provider retries
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 16 << 20
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverValkey
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "citeqa:"
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderGemini
	}
	if c.Generation.Burst <= 0 {
		c.Generation.Burst = 1
	}
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.BaseDelayMs <= 0 {
		c.Retry.BaseDelayMs = 2000
	}
	if c.Decomposer.SentencesPerChunk <= 0 {
		c.Decomposer.SentencesPerChunk = 5
	}
	if c.Decomposer.MaxChunkChars <= 0 {
		c.Decomposer.MaxChunkChars = 2000
	}
	if c.Retrieval.Strategy == "" {
		c.Retrieval.Strategy = StrategyKeyword
	}
	if c.Retrieval.MaxSources <= 0 {
		c.Retrieval.MaxSources = 8
	}
	if c.Retrieval.MinScore <= 0 {
		c.Retrieval.MinScore = 0.3
	}
	if c.Retrieval.TermExpansion == nil {
		on := c.Retrieval.Strategy == StrategyKeyword
		c.Retrieval.TermExpansion = &on
	}
	if c.Retrieval.Embedding.Provider == "" {
		c.Retrieval.Embedding.Provider = ProviderOpenAI
	}
	if c.Retrieval.Embedding.Model == "" {
		c.Retrieval.Embedding.Model = "text-embedding-3-small"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Storage.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Storage.Addrs) == 0 {
			return fmt.Errorf("storage.addrs is required for driver %q", c.Storage.Driver)
		}
	case DriverBadger, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf(
			"storage.driver must be one of valkey, redis, badger, sqlite, memory, got %q",
			c.Storage.Driver,
		)
	}

	switch c.Generation.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf(
			"generation.provider must be one of gemini, openai, anthropic, got %q",
			c.Generation.Provider,
		)
	}
	if c.Generation.RequestsPerSecond < 0 {
		return fmt.Errorf("generation.requests_per_second must not be negative, got %v", c.Generation.RequestsPerSecond)
	}

	if c.Decomposer.OverlapSentences < 0 || c.Decomposer.OverlapSentences >= c.Decomposer.SentencesPerChunk {
		return fmt.Errorf(
			"decomposer.overlap_sentences must be in [0, %d), got %d",
			c.Decomposer.SentencesPerChunk, c.Decomposer.OverlapSentences,
		)
	}

	switch c.Retrieval.Strategy {
	case StrategyKeyword:
	case StrategySemantic, StrategyHybrid:
		if c.Retrieval.Embedding.Provider != ProviderOpenAI {
			return fmt.Errorf(
				"retrieval.embedding.provider must be \"openai\" (any OpenAI-compatible API), got %q",
				c.Retrieval.Embedding.Provider,
			)
		}
		if c.Retrieval.Embedding.APIKey == "" {
			return fmt.Errorf("retrieval.embedding.api_key is required for strategy %q", c.Retrieval.Strategy)
		}
	default:
		return fmt.Errorf(
			"retrieval.strategy must be one of keyword, semantic, hybrid, got %q",
			c.Retrieval.Strategy,
		)
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

// Expansion reports whether query term expansion is enabled.
func (r RetrievalConfig) Expansion() bool {
	return r.TermExpansion != nil && *r.TermExpansion
}
