package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the Cloudberry Storage configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Translator TranslatorConfig `yaml:"translator"`
	OCR        OCRConfig        `yaml:"ocr"`
	Search     SearchConfig     `yaml:"search"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Limits     LimitsConfig     `yaml:"limits"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"` // default: determined by env
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverMilvus = "milvus"
)

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string       `yaml:"driver" validate:"oneof=valkey redis milvus"`
	Addrs            []string     `yaml:"addrs"`
	Password         string       `yaml:"password"`
	ReadinessTimeout int          `yaml:"readiness_timeout_sec"`
	KeyPrefix        string       `yaml:"key_prefix"`
	Milvus           MilvusConfig `yaml:"milvus"`
}

// MilvusConfig holds Milvus connection settings, used when driver is milvus.
type MilvusConfig struct {
	Address  string `yaml:"address"`
	DBName   string `yaml:"db_name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLS      bool   `yaml:"tls"`
}

// IndexConfig holds HNSW parameters.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	HNSWEFRuntime   int `yaml:"hnsw_ef_runtime"` // 0 = server default
}

// EmbeddingConfig holds both embedders.
type EmbeddingConfig struct {
	Text       TextEmbeddingConfig       `yaml:"text"`
	Multimodal MultimodalEmbeddingConfig `yaml:"multimodal"`
}

// TextEmbeddingConfig is an OpenAI-compatible embeddings provider.
type TextEmbeddingConfig struct {
	Provider   string      `yaml:"provider"`
	APIKey     string      `yaml:"api_key"`
	BaseURL    string      `yaml:"base_url"`
	Model      string      `yaml:"model" validate:"required"`
	Dimensions int         `yaml:"dimensions" validate:"min=1"`
	Cache      CacheConfig `yaml:"cache"`
}

// CacheConfig controls the embedding cache in the key-value store.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLHrs  int  `yaml:"ttl_hours"`
}

// MultimodalEmbeddingConfig is the ONE-PEACE gRPC service.
type MultimodalEmbeddingConfig struct {
	Addr       string `yaml:"addr" validate:"required"`
	Service    string `yaml:"service"`
	Dimensions int    `yaml:"dimensions" validate:"min=1"`
}

// TranslatorConfig holds the chat-completion translator settings.
type TranslatorConfig struct {
	Enabled    bool    `yaml:"enabled"`
	APIKey     string  `yaml:"api_key"`
	BaseURL    string  `yaml:"base_url"`
	Model      string  `yaml:"model" validate:"required_if=Enabled true"`
	TargetLang string  `yaml:"target_lang"`
	RPS        float64 `yaml:"rps" validate:"min=0"`
}

// OCR providers.
const (
	OCRProviderOpenAI = "openai"
	OCRProviderNone   = "none"
)

// OCRConfig holds the vision OCR settings.
type OCRConfig struct {
	Provider  string  `yaml:"provider" validate:"oneof=openai none"`
	APIKey    string  `yaml:"api_key"`
	BaseURL   string  `yaml:"base_url"`
	Model     string  `yaml:"model" validate:"required_if=Provider openai"`
	MaxTokens int     `yaml:"max_tokens"`
	RPS       float64 `yaml:"rps" validate:"min=0"`
}

// SearchConfig tunes Find.
type SearchConfig struct {
	DefaultTopK    int  `yaml:"default_top_k"`
	MaxTopK        int  `yaml:"max_top_k"`
	ExtendedFusion bool `yaml:"extended_fusion"`
}

// IngestConfig tunes Put.
type IngestConfig struct {
	PruneStaleImages   bool `yaml:"prune_stale_images"`
	EmbedParallelism   int  `yaml:"embed_parallelism"`
	MaxAttachments     int  `yaml:"max_attachments" validate:"min=0"`
	MaxAttachmentBytes int  `yaml:"max_attachment_bytes" validate:"min=0"`
}

// LimitsConfig bounds request concurrency and collaborator latency.
type LimitsConfig struct {
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"`
	QueueTimeoutMs        int `yaml:"queue_timeout_ms"`
	CallTimeoutSec        int `yaml:"call_timeout_sec"`
}

// BreakerConfig holds circuit breaker settings shared by all collaborators.
type BreakerConfig struct {
	FailureRatio   float64 `yaml:"failure_ratio" validate:"min=0,max=1"`
	MinRequests    uint32  `yaml:"min_requests"`
	OpenTimeoutSec int     `yaml:"open_timeout_sec"`
}

// QueueTimeout returns limits.queue_timeout_ms as a duration.
func (l LimitsConfig) QueueTimeout() time.Duration {
	return time.Duration(l.QueueTimeoutMs) * time.Millisecond
}

// CallTimeout returns limits.call_timeout_sec as a duration.
func (l LimitsConfig) CallTimeout() time.Duration {
	return time.Duration(l.CallTimeoutSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file next to the working directory is loaded first; a missing one is fine.
func Load(env string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
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
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 64 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "cbs:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Embedding.Text.Provider == "" {
		c.Embedding.Text.Provider = "openai"
	}
	if c.Embedding.Text.Dimensions <= 0 {
		c.Embedding.Text.Dimensions = 384
	}
	if c.Embedding.Text.Cache.TTLHrs <= 0 {
		c.Embedding.Text.Cache.TTLHrs = 7 * 24
	}
	if c.Embedding.Multimodal.Dimensions <= 0 {
		c.Embedding.Multimodal.Dimensions = 1536
	}
	if c.Translator.TargetLang == "" {
		c.Translator.TargetLang = "en"
	}
	if c.OCR.Provider == "" {
		c.OCR.Provider = OCRProviderNone
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 10
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 100
	}
	if c.Ingest.EmbedParallelism <= 0 {
		c.Ingest.EmbedParallelism = 4
	}
	if c.Limits.MaxConcurrentRequests <= 0 {
		c.Limits.MaxConcurrentRequests = 64
	}
	if c.Limits.QueueTimeoutMs <= 0 {
		c.Limits.QueueTimeoutMs = 5000
	}
	if c.Limits.CallTimeoutSec <= 0 {
		c.Limits.CallTimeoutSec = 30
	}
	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 10
	}
	if c.Breaker.OpenTimeoutSec <= 0 {
		c.Breaker.OpenTimeoutSec = 30
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for correctness: struct tags first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q check (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("validate: %w", err)
	}

	switch c.Database.Driver {
	case DriverMilvus:
		if c.Database.Milvus.Address == "" {
			return fmt.Errorf("database.milvus.address is required for driver milvus")
		}
		if c.Embedding.Text.Cache.Enabled && len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the embedding cache")
		}
	default:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) exceeds search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
	}
	return nil
}

// fieldPath turns "Config.Database.Driver" into "Database.Driver".
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}

// loadDotEnv loads KEY=VALUE pairs without overriding variables already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
