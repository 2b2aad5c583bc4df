package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "API_AUTH_TOKEN", "LLM_PROVIDER", "LLM_MODEL",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OLLAMA_HOST", "EMBEDDING_MODEL",
		"CORPUS_PATH", "TEMPLATES_DIR", "DB_PATH",
		"HS_CONFIDENCE_THRESHOLD", "HS_TOP_N", "EXTERNAL_HTTP_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	clearProviderEnv(t)

	cfg := LoadConfig()

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr default: %q", cfg.ListenAddr)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("unexpected provider default: %q", cfg.LLMProvider)
	}
	if cfg.DBPath != "./tradeforms.db" {
		t.Fatalf("unexpected db path default: %q", cfg.DBPath)
	}
	if cfg.EmbeddingModel != "nomic-embed-text" {
		t.Fatalf("unexpected embedding model default: %q", cfg.EmbeddingModel)
	}
	if cfg.HSConfidenceThreshold != 0.40 {
		t.Fatalf("unexpected HS threshold default: %f", cfg.HSConfidenceThreshold)
	}
	if cfg.ExternalHTTPTimeout() != 30*time.Second {
		t.Fatalf("unexpected external HTTP timeout default: %s", cfg.ExternalHTTPTimeout())
	}
}

func TestLoadConfigMissingCredentialsDisablesArms(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	clearProviderEnv(t)

	cfg := LoadConfig()

	// No key and no embedding host must not be fatal: startup succeeds with
	// both AI arms disabled.
	if cfg.LLMConfigured() {
		t.Fatal("expected LLM to be unconfigured without a key")
	}
	if cfg.EmbeddingConfigured() {
		t.Fatal("expected embedding to be unconfigured without a host")
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm_provider: "anthropic"
anthropic_api_key: "yaml-anthropic"
ollama_host: "http://localhost:11434"
db_path: "/tmp/yaml.db"
hs_confidence_threshold: 0.55
external_http_timeout_seconds: 75
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	clearProviderEnv(t)
	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DB_PATH", "/tmp/env.db")

	cfg := LoadConfig()

	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected env to override provider, got %q", cfg.LLMProvider)
	}
	if !cfg.LLMConfigured() {
		t.Fatal("expected openai key to configure the LLM arm")
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("expected env to override db path, got %q", cfg.DBPath)
	}
	if cfg.HSConfidenceThreshold != 0.55 {
		t.Fatalf("expected yaml threshold 0.55, got %f", cfg.HSConfidenceThreshold)
	}
	if !cfg.EmbeddingConfigured() {
		t.Fatal("expected yaml ollama host to configure embedding arm")
	}
	if cfg.ExternalHTTPTimeoutSeconds != 75 {
		t.Fatalf("expected yaml timeout 75, got %d", cfg.ExternalHTTPTimeoutSeconds)
	}
}
