// Package config loads process-wide configuration from config files and
// environment variables, with environment taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   Server   `mapstructure:"server"`
	Search   Search   `mapstructure:"search"`
	LLM      LLM      `mapstructure:"llm"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Events   Events   `mapstructure:"events"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	WebOrigin       string        `mapstructure:"web_origin"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Search holds search provider configuration
type Search struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	MaxPerQuery int           `mapstructure:"max_per_query"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LLM holds language model configuration
type LLM struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Pipeline holds per-request pipeline tunables
type Pipeline struct {
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	MaxSources        int           `mapstructure:"max_sources"`
	ImpressionTimeout time.Duration `mapstructure:"impression_timeout"`
}

// Events holds event store configuration
type Events struct {
	DataDir string `mapstructure:"data_dir"`
}

// Load reads configuration from the given file (optional), .env, and the
// environment. Environment variables override file values.
func Load(configFile string) (*Config, error) {
	// Load .env first so env bindings below can see its values
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnvironmentVariables(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(".clarion")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional; only a parse error is fatal
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.web_origin", "http://localhost:5173")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("search.provider", "brave")
	v.SetDefault("search.max_per_query", 10)
	v.SetDefault("search.concurrency", 5)
	v.SetDefault("search.timeout", "15s")

	v.SetDefault("llm.model", "gemini-2.0-flash")

	v.SetDefault("pipeline.fetch_timeout", "8s")
	v.SetDefault("pipeline.max_sources", 8)
	v.SetDefault("pipeline.impression_timeout", "25s")

	v.SetDefault("events.data_dir", ".clarion-data")
}

func bindEnvironmentVariables(v *viper.Viper) {
	// Canonical environment keys, plus viper-style fallbacks
	bindings := map[string][]string{
		"search.api_key":    {"SEARCH_API_KEY"},
		"llm.api_key":       {"LLM_API_KEY", "GEMINI_API_KEY"},
		"server.port":       {"LISTEN_PORT"},
		"server.web_origin": {"WEB_ORIGIN"},
		"search.provider":   {"SEARCH_PROVIDER"},
		"llm.model":         {"LLM_MODEL"},
		"events.data_dir":   {"DATA_DIR"},
	}
	for key, envKeys := range bindings {
		args := append([]string{key}, envKeys...)
		if err := v.BindEnv(args...); err != nil {
			// BindEnv only errors on an empty key list
			panic(err)
		}
	}
}

func validate(cfg *Config) error {
	var missing []string

	// Stub backends are wired in-process for tests and need no keys
	if cfg.Search.Provider != "mock" && cfg.Search.APIKey == "" && cfg.Search.Provider != "duckduckgo" {
		missing = append(missing, "SEARCH_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Search.Concurrency < 1 {
		return fmt.Errorf("search concurrency must be at least 1, got %d", cfg.Search.Concurrency)
	}

	return nil
}
