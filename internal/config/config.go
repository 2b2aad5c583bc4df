package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 30 * time.Second

type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	APIAuthToken string `yaml:"api_auth_token"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	OllamaHost     string `yaml:"ollama_host"`
	EmbeddingModel string `yaml:"embedding_model"`

	CorpusPath   string `yaml:"corpus_path"`
	TemplatesDir string `yaml:"templates_dir"`
	DBPath       string `yaml:"db_path"`

	HSConfidenceThreshold float64 `yaml:"hs_confidence_threshold"`
	HSTopN                int     `yaml:"hs_top_n"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`
}

// LoadConfig reads config.yaml (or CONFIG_PATH) and applies env overrides.
// A missing provider key or embedding host is not an error: those arms are
// disabled and the deterministic fallbacks take over.
func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.APIAuthToken, "API_AUTH_TOKEN")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OllamaHost, "OLLAMA_HOST")
	envOverride(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	envOverride(&cfg.CorpusPath, "CORPUS_PATH")
	envOverride(&cfg.TemplatesDir, "TEMPLATES_DIR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideFloat(&cfg.HSConfidenceThreshold, "HS_CONFIDENCE_THRESHOLD")
	envOverrideInt(&cfg.HSTopN, "HS_TOP_N")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.CorpusPath == "" {
		cfg.CorpusPath = "./hts_current.json"
	}
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "./templates"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./tradeforms.db"
	}
	if cfg.HSConfidenceThreshold == 0 {
		cfg.HSConfidenceThreshold = 0.40
	}
	if cfg.HSTopN == 0 {
		cfg.HSTopN = 1
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)
	}

	switch cfg.LLMProvider {
	case "anthropic", "openai":
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}
	if cfg.HSConfidenceThreshold < 0 || cfg.HSConfidenceThreshold > 1 {
		log.Fatalf("invalid hs_confidence_threshold '%f': must be between 0 and 1", cfg.HSConfidenceThreshold)
	}
	if cfg.HSTopN < 1 {
		log.Fatalf("invalid hs_top_n '%d': must be >= 1", cfg.HSTopN)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 1 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 1", cfg.ExternalHTTPTimeoutSeconds)
	}

	return cfg
}

// LLMConfigured reports whether the configured provider has a credential.
func (c Config) LLMConfigured() bool {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey != ""
	default:
		return c.AnthropicAPIKey != ""
	}
}

// EmbeddingConfigured reports whether an embedding host is set.
func (c Config) EmbeddingConfigured() bool {
	return strings.TrimSpace(c.OllamaHost) != ""
}

// ExternalHTTPTimeout is the bound applied to every provider call.
func (c Config) ExternalHTTPTimeout() time.Duration {
	return time.Duration(c.ExternalHTTPTimeoutSeconds) * time.Second
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
