// Package config loads service configuration and builds the external clients.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides, e.g. TODO_LLM_API_KEY -> llm.api_key.
const EnvPrefix = "TODO_"

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Neo4j   Neo4jConfig   `koanf:"neo4j"`
	LLM     LLMConfig     `koanf:"llm"`
	Storage StorageConfig `koanf:"storage"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
	// PublicURL is the externally visible base URL, used for attachment links.
	PublicURL string `koanf:"public_url" validate:"required,url"`
}

// Neo4jConfig configures the task database.
type Neo4jConfig struct {
	URI      string `koanf:"uri" validate:"required,url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// LLMConfig configures the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model" validate:"required"`
	Temperature       float64       `koanf:"temperature" validate:"gt=0,lte=2"`
	MaxTokens         int           `koanf:"max_tokens" validate:"gt=0"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerMinute float64       `koanf:"requests_per_minute" validate:"gte=0"`
}

// StorageConfig configures attachment storage.
type StorageConfig struct {
	AttachmentsDir string `koanf:"attachments_dir" validate:"required"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes" validate:"gt=0"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// legacyEnv maps config keys to the variable names used by OpenAI client libraries.
var legacyEnv = map[string]string{
	"llm.api_key":  "OPENAI_API_KEY",
	"llm.base_url": "OPENAI_BASE_URL",
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      "0.0.0.0:8080",
			PublicURL: "http://localhost:8080",
		},
		Neo4j: Neo4jConfig{
			URI:      "neo4j://localhost:7687",
			Username: "neo4j",
			Password: "password",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.deepseek.com/v1",
			Model:       "deepseek-chat",
			Temperature: 0.3,
			MaxTokens:   1000,
			Timeout:     30 * time.Second,
		},
		Storage: StorageConfig{
			AttachmentsDir: "./data/attachments",
			MaxUploadBytes: 10 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. TODO_* environment variables (TODO_LLM_API_KEY -> llm.api_key)
//  2. the YAML file at path, when path is not empty
//  3. OPENAI_API_KEY and OPENAI_BASE_URL
//  4. Default()
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	for key, name := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", name, err)
			}
		}
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps TODO_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
