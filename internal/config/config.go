// Package config handles configuration loading for the Pivot Note
// backend. It supports YAML config files with environment variable
// overrides (prefix PIVOTNOTE_).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"        yaml:"llm"`
	SerpAPI    SerpAPIConfig    `mapstructure:"serpapi"    yaml:"serpapi"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"   yaml:"supabase"`
	Collection CollectionConfig `mapstructure:"collection" yaml:"collection"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary     string  `mapstructure:"primary"     yaml:"primary"` // "gemini", "openai", "ollama"
	GeminiKey   string  `mapstructure:"gemini_key"  yaml:"gemini_key"`
	OpenAIKey   string  `mapstructure:"openai_key"  yaml:"openai_key"`
	OllamaURL   string  `mapstructure:"ollama_url"  yaml:"ollama_url"`
	ProModel    string  `mapstructure:"pro_model"   yaml:"pro_model"`   // grids, deep dives
	FlashModel  string  `mapstructure:"flash_model" yaml:"flash_model"` // enrichment
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"`
}

// SerpAPIConfig holds SerpAPI credentials for Google Trends collection.
type SerpAPIConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// SupabaseConfig holds hosted database connection settings.
type SupabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
	Key string `mapstructure:"key" yaml:"key"`
}

// CollectionConfig holds trend collection settings.
type CollectionConfig struct {
	Regions       []string `mapstructure:"regions"        yaml:"regions"` // SerpAPI geo codes
	TrendsPerRun  int      `mapstructure:"trends_per_run" yaml:"trends_per_run"`
	WindowHours   int      `mapstructure:"window_hours"   yaml:"window_hours"`
	ContextFeeds  []string `mapstructure:"context_feeds"  yaml:"context_feeds"`
	ContextLimit  int      `mapstructure:"context_limit"  yaml:"context_limit"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads configuration from the default search paths plus env vars.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".pivotnote"))
	v.AddConfigPath("/etc/pivotnote")

	v.SetEnvPrefix("PIVOTNOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("PIVOTNOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "gemini")
	v.SetDefault("llm.ollama_url", "")
	v.SetDefault("llm.pro_model", "gemini-1.5-pro")
	v.SetDefault("llm.flash_model", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.max_tokens", 8192)

	// Collection defaults: USA + India, top 10 each, last 24h.
	v.SetDefault("collection.regions", []string{"US", "IN"})
	v.SetDefault("collection.trends_per_run", 10)
	v.SetDefault("collection.window_hours", 24)
	v.SetDefault("collection.context_limit", 20)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("PIVOTNOTE_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv("PIVOTNOTE_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("PIVOTNOTE_SERPAPI_API_KEY"); key != "" {
		cfg.SerpAPI.APIKey = key
	}
	if key := os.Getenv("PIVOTNOTE_SUPABASE_URL"); key != "" {
		cfg.Supabase.URL = key
	}
	if key := os.Getenv("PIVOTNOTE_SUPABASE_KEY"); key != "" {
		cfg.Supabase.Key = key
	}
}

// KeyStatus describes whether a credential is configured, for the
// status command and health displays.
type KeyStatus struct {
	Name   string
	IsSet  bool
	Source string
	Masked string
}

// CheckAPIKeys reports the configuration state of every credential the
// pipeline can use.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		keyStatus("Gemini API Key", cfg.LLM.GeminiKey, "PIVOTNOTE_LLM_GEMINI_KEY"),
		keyStatus("OpenAI API Key", cfg.LLM.OpenAIKey, "PIVOTNOTE_LLM_OPENAI_KEY"),
		keyStatus("SerpAPI Key", cfg.SerpAPI.APIKey, "PIVOTNOTE_SERPAPI_API_KEY"),
		keyStatus("Supabase URL", cfg.Supabase.URL, "PIVOTNOTE_SUPABASE_URL"),
		keyStatus("Supabase Key", cfg.Supabase.Key, "PIVOTNOTE_SUPABASE_KEY"),
	}
}

func keyStatus(name, value, envVar string) KeyStatus {
	ks := KeyStatus{Name: name}
	if value == "" {
		return ks
	}
	ks.IsSet = true
	ks.Masked = mask(value)
	if os.Getenv(envVar) != "" {
		ks.Source = "env"
	} else {
		ks.Source = "config"
	}
	return ks
}

// mask hides all but the edges of a credential.
func mask(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
