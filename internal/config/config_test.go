package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

func validConfig() Config {
	cfg := Config{Database: DatabaseConfig{Addrs: []string{"localhost:6379"}}}
	cfg.ApplyDefaults()
	return cfg
}

func TestParse_FullFile(t *testing.T) {
	t.Setenv("RAGCHAT_TEST_MODEL", "llama3.2")
	data := []byte(`
http:
  port: 9000
database:
  driver: valkey
  addrs: ["valkey:6379"]
embedding:
  provider: openai
  base_url: https://api.example.com/v1
  api_key: secret
  model: text-embedding-3-small
  dimensions: 512
llm:
  provider: local
  model: ${RAGCHAT_TEST_MODEL}
  temperature: 0
rag:
  chunk_size: 800
  answer_language: ${RAGCHAT_TEST_LANG:-Spanish}
  mmr: true
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9000 || cfg.Database.Driver != DriverValkey {
		t.Errorf("unexpected http/database %+v %+v", cfg.HTTP, cfg.Database)
	}
	if cfg.Embedding.Provider != domain.ProviderOpenAI || cfg.Embedding.Dimensions != 512 {
		t.Errorf("unexpected embedding %+v", cfg.Embedding)
	}
	if cfg.LLM.Provider != domain.ProviderOllama || cfg.LLM.Model != "llama3.2" {
		t.Errorf("unexpected llm %+v", cfg.LLM)
	}
	if *cfg.LLM.Temperature != 0 {
		t.Errorf("explicit zero temperature must be kept, got %v", *cfg.LLM.Temperature)
	}
	if cfg.RAG.ChunkSize != 800 || cfg.RAG.ChunkOverlap != 160 {
		t.Errorf("unexpected chunking %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.AnswerLanguage != "Spanish" || !cfg.RAG.MMR {
		t.Errorf("unexpected rag %+v", cfg.RAG)
	}
}

func TestParse_UnsupportedProvider(t *testing.T) {
	data := []byte(`
database:
  addrs: ["localhost:6379"]
llm:
  provider: anthropic
`)
	_, err := Parse(data)
	if !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: bolt\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.BoltPath != "data/ragchat.db" {
		t.Errorf("expected default bolt path, got %q", cfg.Database.BoltPath)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8000 || cfg.HTTP.WriteTimeoutSec != 330 || cfg.HTTP.MaxUploadMB != 50 {
		t.Errorf("unexpected http defaults %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != DriverRedis || cfg.Database.HNSWM != 16 || cfg.Database.HNSWEFConstruct != 200 {
		t.Errorf("unexpected database defaults %+v", cfg.Database)
	}
	if cfg.Embedding.Provider != domain.ProviderOllama || cfg.Embedding.Model != "nomic-embed-text:latest" {
		t.Errorf("unexpected embedding defaults %+v", cfg.Embedding)
	}
	if cfg.Embedding.TimeoutSec != 180 || cfg.Embedding.Concurrency != 4 {
		t.Errorf("unexpected embedding limits %+v", cfg.Embedding)
	}
	if cfg.LLM.Model != "llama3.1:8b" || cfg.LLM.TimeoutSec != 300 || *cfg.LLM.Temperature != 0.2 || cfg.LLM.NumCtx != 8192 {
		t.Errorf("unexpected llm defaults %+v", cfg.LLM)
	}
	r := cfg.RAG
	if r.ChunkSize != 1200 || r.ChunkOverlap != 220 || r.MaxContextChunks != 6 || r.MaxSourceChars != 5000 {
		t.Errorf("unexpected rag defaults %+v", r)
	}
	if r.IngestBatchSize != 256 || r.AnswerLanguage != "English" || r.PDFToTextPath != "pdftotext" {
		t.Errorf("unexpected rag defaults %+v", r)
	}
	if cfg.Session.TTLSec != 86400 {
		t.Errorf("unexpected session ttl %d", cfg.Session.TTLSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	temp := 0.7
	cfg := Config{
		HTTP:     HTTPConfig{Port: 1234, ReadTimeoutSec: 30, RateLimitRPS: 5},
		Database: DatabaseConfig{Driver: DriverBolt, BoltPath: "/tmp/x.db"},
		LLM:      LLMConfig{Provider: domain.ProviderOpenAI, Model: "gpt-4o-mini", Temperature: &temp},
		RAG:      RAGConfig{ChunkSize: 500, ChunkOverlap: 50},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 1234 || cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.RateLimitBurst != 6 {
		t.Errorf("unexpected http %+v", cfg.HTTP)
	}
	if cfg.Database.BoltPath != "/tmp/x.db" {
		t.Errorf("unexpected bolt path %q", cfg.Database.BoltPath)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || *cfg.LLM.Temperature != 0.7 || cfg.LLM.Provider != domain.ProviderOpenAI {
		t.Errorf("unexpected llm %+v", cfg.LLM)
	}
	if cfg.RAG.ChunkOverlap != 50 {
		t.Errorf("unexpected overlap %d", cfg.RAG.ChunkOverlap)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"bolt needs no addrs", func(c *Config) {
			c.Database.Driver = DriverBolt
			c.Database.Addrs = nil
			c.Database.BoltPath = "x.db"
		}, ""},
		{"bolt without path", func(c *Config) { c.Database.Driver = DriverBolt }, "database.bolt_path"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "database.driver"},
		{"missing embedding model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"temperature", func(c *Config) { v := 3.0; c.LLM.Temperature = &v }, "llm.temperature"},
		{"overlap", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }, "rag.chunk_overlap"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RAGCHAT_SET", "value")
	got := string(expandEnvVars([]byte("a=${RAGCHAT_SET} b=${RAGCHAT_UNSET:-fallback} c=${RAGCHAT_UNSET}")))
	if got != "a=value b=fallback c=" {
		t.Errorf("unexpected expansion %q", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Error("expected local default")
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Error("expected prod")
	}
}
