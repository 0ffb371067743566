package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Gate     GateConfig     `mapstructure:"gate"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects and configures the conversation store backend.
type DatabaseConfig struct {
	Path        string `mapstructure:"path"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

// LLMConfig holds the generation provider configuration.
type LLMConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Timeout returns the provider call deadline as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GateConfig holds the eligibility gate configuration. An empty AllowedRoles
// list permits any role.
type GateConfig struct {
	MinAge       int      `mapstructure:"min_age"`
	AllowedRoles []string `mapstructure:"allowed_roles"`
}

// FilterConfig carries extra blocked terms merged into the default filter
// policy, keyed by category name.
type FilterConfig struct {
	BlockedTerms map[string][]string `mapstructure:"blocked_terms"`
}

// AdminConfig holds the admin endpoint configuration. An empty token leaves
// the admin listing open (local development only).
type AdminConfig struct {
	Token string `mapstructure:"token"`
}

// Load reads configuration from the file named by CONFIG_PATH (default
// config.yaml), applies defaults, then lets environment variables override
// secrets. A missing config file is not an error; the defaults stand.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.path", "evolve_bot.db")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 200)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout_seconds", 15)
	v.SetDefault("gate.min_age", 18)

	v.AutomaticEnv()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if token := v.GetString("ADMIN_TOKEN"); token != "" {
		config.Admin.Token = token
	}
	if dbPath := v.GetString("BOT_DB"); dbPath != "" {
		config.Database.Path = dbPath
	}
	if port := v.GetString("PORT"); port != "" {
		config.Server.Port = port
	}

	return &config, nil
}
