// Package config loads the service configuration from YAML with environment expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/chat"
)

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverBolt   = "bolt"
)

// Config holds the ragchat configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int     `yaml:"port"`
	ReadTimeoutSec  int     `yaml:"read_timeout_sec"`
	WriteTimeoutSec int     `yaml:"write_timeout_sec"`
	ShutdownSec     int     `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int     `yaml:"max_upload_mb"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"` // per client IP, 0 = unlimited
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds vector store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, bolt (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	BoltPath         string   `yaml:"bolt_path"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// EmbeddingCacheConfig holds embedding cache settings. Only the Redis drivers cache.
type EmbeddingCacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	Provider            domain.Provider      `yaml:"provider"`
	BaseURL             string               `yaml:"base_url"`
	APIKey              string               `yaml:"api_key"`
	Model               string               `yaml:"model"`
	Dimensions          int                  `yaml:"dimensions"`
	TimeoutSec          int                  `yaml:"timeout_sec"`
	Concurrency         int                  `yaml:"concurrency"`
	DocumentInstruction string               `yaml:"document_instruction"`
	QueryInstruction    string               `yaml:"query_instruction"`
	Cache               EmbeddingCacheConfig `yaml:"cache"`
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	Provider    domain.Provider `yaml:"provider"`
	BaseURL     string          `yaml:"base_url"`
	APIKey      string          `yaml:"api_key"`
	Model       string          `yaml:"model"`
	TimeoutSec  int             `yaml:"timeout_sec"`
	Temperature *float64        `yaml:"temperature"`
	NumCtx      int             `yaml:"num_ctx"`
}

// RAGConfig holds ingestion and answering settings.
type RAGConfig struct {
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	MaxContextChunks  int    `yaml:"max_context_chunks"`
	MaxSourceChars    int    `yaml:"max_source_chars"`
	IngestBatchSize   int    `yaml:"ingest_batch_size"`
	AnswerLanguage    string `yaml:"answer_language"`
	MMR               bool   `yaml:"mmr"`
	UploadsDir        string `yaml:"uploads_dir"` // empty = do not keep uploads
	PDFToTextPath     string `yaml:"pdftotext_path"`
	ExtractTimeoutSec int    `yaml:"extract_timeout_sec"`
}

// SessionConfig holds session settings.
type SessionConfig struct {
	TTLSec int `yaml:"ttl_sec"`
}

// Load reads configuration from config/<env>.yaml. A .env file in the working
// directory, if present, is loaded into the environment first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from the given YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes, applies defaults and validates.
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	c.applyHTTPDefaults()
	c.applyDatabaseDefaults()
	c.applyBackendDefaults()
	c.applyRAGDefaults()
	if c.Session.TTLSec <= 0 {
		c.Session.TTLSec = 86400
	}
}

func (c *Config) applyHTTPDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 60
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 330
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 50
	}
	if c.HTTP.RateLimitRPS > 0 && c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = int(c.HTTP.RateLimitRPS) + 1
	}
}

func (c *Config) applyDatabaseDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.Driver == DriverBolt && c.Database.BoltPath == "" {
		c.Database.BoltPath = "data/ragchat.db"
	}
	if c.Database.HNSWM <= 0 {
		c.Database.HNSWM = 16
	}
	if c.Database.HNSWEFConstruct <= 0 {
		c.Database.HNSWEFConstruct = 200
	}
}

func (c *Config) applyBackendDefaults() {
	if c.Embedding.Provider == 0 {
		c.Embedding.Provider = domain.ProviderOllama
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 180
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 4
	}
	if c.Embedding.Cache.TTLSec <= 0 {
		c.Embedding.Cache.TTLSec = 7 * 86400
	}
	if c.Embedding.Model == "" && c.Embedding.Provider == domain.ProviderOllama {
		c.Embedding.Model = "nomic-embed-text:latest"
	}

	if c.LLM.Provider == 0 {
		c.LLM.Provider = domain.ProviderOllama
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 300
	}
	if c.LLM.Model == "" && c.LLM.Provider == domain.ProviderOllama {
		c.LLM.Model = "llama3.1:8b"
	}
	if c.LLM.Temperature == nil {
		t := chat.DefaultTemperature
		c.LLM.Temperature = &t
	}
	if c.LLM.NumCtx <= 0 {
		c.LLM.NumCtx = 8192
	}
}

func (c *Config) applyRAGDefaults() {
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = 1200
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = min(220, c.RAG.ChunkSize/5)
	}
	if c.RAG.MaxContextChunks <= 0 {
		c.RAG.MaxContextChunks = 6
	}
	if c.RAG.MaxSourceChars <= 0 {
		c.RAG.MaxSourceChars = 5000
	}
	if c.RAG.IngestBatchSize <= 0 {
		c.RAG.IngestBatchSize = 256
	}
	if c.RAG.AnswerLanguage == "" {
		c.RAG.AnswerLanguage = "English"
	}
	if c.RAG.PDFToTextPath == "" {
		c.RAG.PDFToTextPath = "pdftotext"
	}
	if c.RAG.ExtractTimeoutSec <= 0 {
		c.RAG.ExtractTimeoutSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required for the redis and valkey drivers")
		}
	case DriverBolt:
		if c.Database.BoltPath == "" {
			return errors.New("database.bolt_path is required for the bolt driver")
		}
	default:
		return fmt.Errorf("database.driver must be redis, valkey or bolt, got %q", c.Database.Driver)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if t := *c.LLM.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %g", t)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d)",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	return nil
}

// Timeout converts a seconds setting to a duration.
func Timeout(sec int) time.Duration {
	return time.Duration(sec) * time.Second
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
