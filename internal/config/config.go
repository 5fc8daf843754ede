// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// CacheConfig describes where the action cache lives on disk and how the
// advisory lock behaves under contention.
type CacheConfig struct {
	// Dir is the directory holding the cache and lock files. An empty value
	// resolves to ~/.stagehand at load time.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// File is the cache file name inside Dir.
	File string `mapstructure:"file" yaml:"file"`
	// LockAttempts bounds how many times a lock acquisition is retried
	// before giving up.
	LockAttempts int `mapstructure:"lock_attempts" yaml:"lock_attempts"`
	// LockRetryDelay is the pause between lock acquisition attempts.
	LockRetryDelay time.Duration `mapstructure:"lock_retry_delay" yaml:"lock_retry_delay"`
}

// Path returns the full path of the cache file.
func (c CacheConfig) Path() string {
	return filepath.Join(c.Dir, c.File)
}

// BrowserConfig holds settings for the native recording engine.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// LLMConfig holds settings for the code conversion collaborator.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "stagehand")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Cache --
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.file", "action_cache.json")
	v.SetDefault("cache.lock_attempts", 20)
	v.SetDefault("cache.lock_retry_delay", "50ms")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "15s")

	// -- LLM --
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "90s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 8192)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	if err := cfg.ResolvePaths(); err != nil {
		panic(fmt.Sprintf("failed to resolve default paths: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	if err := v.BindEnv("llm.api_key", "STAGEHAND_LLM_API_KEY"); err != nil {
		return nil, fmt.Errorf("error binding llm.api_key environment variable: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolvePaths fills in the cache directory when the config leaves it empty,
// defaulting to a dot directory under the user's home.
func (c *Config) ResolvePaths() error {
	if c.Cache.Dir != "" {
		return nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory for cache: %w", err)
	}
	c.Cache.Dir = filepath.Join(home, ".stagehand")
	return nil
}

// Validate performs sanity checks on values that would otherwise fail deep
// inside a component.
func (c *Config) Validate() error {
	if c.Cache.File == "" {
		return fmt.Errorf("cache.file must not be empty")
	}
	if c.Cache.LockAttempts < 1 {
		return fmt.Errorf("cache.lock_attempts must be at least 1, got %d", c.Cache.LockAttempts)
	}
	if c.Cache.LockRetryDelay < 0 {
		return fmt.Errorf("cache.lock_retry_delay must not be negative")
	}
	return nil
}
