package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the chatbot service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Vector     VectorConfig     `yaml:"vector"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Guard      GuardConfig      `yaml:"guard"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Callback   CallbackConfig   `yaml:"callback"`
	Worker     WorkerConfig     `yaml:"worker"`
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
}

// PostgresConfig holds the relational store settings.
type PostgresConfig struct {
	DSN             string `yaml:"dsn"`
	Schema          string `yaml:"schema"`
	MaxConns        int32  `yaml:"max_conns"`
	QueryTimeoutSec int    `yaml:"query_timeout_sec"`
}

// VectorConfig holds the vector store (Redis/Valkey with FT) settings.
type VectorConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"` // 0 = no expiry
	TimeoutSec       int    `yaml:"timeout_sec"`
}

// GenerationConfig holds the chat completion provider settings.
type GenerationConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	QueryModel        string  `yaml:"query_model"`  // planning, SQL and action suggestion
	AnswerModel       string  `yaml:"answer_model"` // answer synthesis
	AnswerTemperature float32 `yaml:"answer_temperature"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// GuardConfig narrows what generated SQL may touch. Empty lists keep the built-in catalog options.
type GuardConfig struct {
	MaxLimit         int      `yaml:"max_limit"`
	AllowedTables    []string `yaml:"allowed_tables"`
	PersonalTables   []string `yaml:"personal_tables"`
	TenantColumn     string   `yaml:"tenant_column"`
	AskerColumn      string   `yaml:"asker_column"`
	SensitiveTable   string   `yaml:"sensitive_table"`
	SensitiveColumns []string `yaml:"sensitive_columns"`
}

// RetrievalConfig holds planning and retrieval bounds.
type RetrievalConfig struct {
	DefaultTopK         int `yaml:"default_top_k"`
	MaxTopK             int `yaml:"max_top_k"`
	MaxPreviewRows      int `yaml:"max_preview_rows"`
	SemanticConcurrency int `yaml:"semantic_concurrency"`
}

// CallbackConfig holds event delivery settings.
type CallbackConfig struct {
	TimeoutSec    int   `yaml:"timeout_sec"`
	RetryDelaysMs []int `yaml:"retry_delays_ms"`
}

// WorkerConfig holds background pool settings.
type WorkerConfig struct {
	Size               int `yaml:"size"`
	ExpirySec          int `yaml:"expiry_sec"`
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

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
	if c.Postgres.Schema == "" {
		c.Postgres.Schema = "public"
	}
	if c.Postgres.QueryTimeoutSec <= 0 {
		c.Postgres.QueryTimeoutSec = 10
	}
	if c.Vector.ReadinessTimeout <= 0 {
		c.Vector.ReadinessTimeout = 10
	}
	if c.Vector.KeyPrefix == "" {
		c.Vector.KeyPrefix = "ai:"
	}
	if c.Vector.HNSWM <= 0 {
		c.Vector.HNSWM = 16
	}
	if c.Vector.HNSWEFConstruct <= 0 {
		c.Vector.HNSWEFConstruct = 200
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "BAAI/bge-m3"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.QueryModel == "" {
		c.Generation.QueryModel = "gpt-4o-mini"
	}
	if c.Generation.AnswerModel == "" {
		c.Generation.AnswerModel = "gpt-4o"
	}
	if c.Generation.AnswerTemperature <= 0 {
		c.Generation.AnswerTemperature = 0.2
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 60
	}
	if c.Guard.MaxLimit <= 0 {
		c.Guard.MaxLimit = 50
	}
	if c.Retrieval.DefaultTopK <= 0 {
		c.Retrieval.DefaultTopK = 5
	}
	if c.Retrieval.MaxTopK <= 0 {
		c.Retrieval.MaxTopK = 20
	}
	if c.Retrieval.MaxPreviewRows <= 0 {
		c.Retrieval.MaxPreviewRows = 10
	}
	if c.Retrieval.SemanticConcurrency <= 0 {
		c.Retrieval.SemanticConcurrency = 4
	}
	if c.Callback.TimeoutSec <= 0 {
		c.Callback.TimeoutSec = 10
	}
	if len(c.Callback.RetryDelaysMs) == 0 {
		c.Callback.RetryDelaysMs = []int{0, 500, 1000, 2000}
	}
	if c.Worker.Size <= 0 {
		c.Worker.Size = 32
	}
	if c.Worker.ExpirySec <= 0 {
		c.Worker.ExpirySec = 10
	}
	if c.Worker.ShutdownTimeoutSec <= 0 {
		c.Worker.ShutdownTimeoutSec = 30
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
	if len(c.Vector.Addrs) == 0 {
		return fmt.Errorf("vector.addrs is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Generation.AnswerTemperature > 2 {
		return fmt.Errorf("generation.answer_temperature must be at most 2, got %g", c.Generation.AnswerTemperature)
	}
	if c.Retrieval.DefaultTopK > c.Retrieval.MaxTopK {
		return fmt.Errorf("retrieval.default_top_k (%d) exceeds retrieval.max_top_k (%d)",
			c.Retrieval.DefaultTopK, c.Retrieval.MaxTopK)
	}
	for i, d := range c.Callback.RetryDelaysMs {
		if d < 0 {
			return fmt.Errorf("callback.retry_delays_ms[%d] must not be negative, got %d", i, d)
		}
	}
	return nil
}

// RetryDelays returns the callback retry schedule as durations.
func (c CallbackConfig) RetryDelays() []time.Duration {
	out := make([]time.Duration, len(c.RetryDelaysMs))
	for i, ms := range c.RetryDelaysMs {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
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
