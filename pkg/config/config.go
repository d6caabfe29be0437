// Package config loads engine configuration from config.yaml with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration for the engine.
// Values come from config.yaml when present, with environment variables
// overriding YAML for fields that support both. Secrets (API keys, the
// credentials key) must only come from environment variables.
type Config struct {
	// Env names the running environment, e.g. "local" or "production".
	// Anything other than "local" selects production log output.
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	Log       LogConfig       `yaml:"log"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	LLM       LLMConfig       `yaml:"llm"`

	// ProjectCredentialsKey encrypts connection secrets stored in project
	// metadata. Either a 32-byte key, base64 encoded (generate with:
	// openssl rand -base64 32), or an arbitrary passphrase.
	// Saved connection profiles cannot be opened without it.
	ProjectCredentialsKey string `yaml:"-" env:"PROJECT_CREDENTIALS_KEY"` // Secret - not in YAML
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is the minimum level emitted: debug, info, warn or error.
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// ZapLevel parses Level into a zap level.
func (c *LogConfig) ZapLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.Level)
}

// WorkspaceConfig holds project storage settings.
type WorkspaceConfig struct {
	// Dir is the directory holding the project registry and all project
	// directories. If empty, it is derived from the user home directory
	// at load time.
	Dir string `yaml:"dir" env:"WORKSPACE_DIR" env-default:""`
}

// LLMConfig holds the diagram assistant endpoint.
type LLMConfig struct {
	// Provider selects the wire protocol: "openai" covers any
	// OpenAI-compatible server, "anthropic" the Anthropic API.
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`

	// Endpoint is the base URL. Required for the openai provider; for
	// anthropic it overrides the default API host.
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`

	// Model is the model name sent with each request.
	Model string `yaml:"model" env:"LLM_MODEL" env-default:""`

	// APIKey authenticates requests. Local endpoints may leave it empty.
	APIKey string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
}

// IsAvailable returns true if an assistant endpoint is configured.
func (c *LLMConfig) IsAvailable() bool {
	if c.Model == "" {
		return false
	}
	// Anthropic has a default API host; OpenAI-compatible servers do not.
	return c.Endpoint != "" || c.Provider == "anthropic"
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; the tool then runs on
// environment variables and defaults alone. The version parameter is
// injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Default the workspace under the user home directory if not set
	if cfg.Workspace.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.Workspace.Dir = filepath.Join(home, ".sketchwork", "projects")
	}

	return cfg, nil
}

// validate rejects field values that cleanenv accepts but the engine cannot use.
func (c *Config) validate() error {
	if _, err := c.Log.ZapLevel(); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	switch c.LLM.Provider {
	case "", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q (want openai or anthropic)", c.LLM.Provider)
	}

	return nil
}
