package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the typed configuration threaded into components at construction.
type Config struct {
	Debug         bool                `mapstructure:"debug"`
	LogFile       string              `mapstructure:"log_file"`
	OSV           OSVConfig           `mapstructure:"osv"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Triage        TriageConfig        `mapstructure:"triage"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Repo          RepoConfig          `mapstructure:"repo"`
	Store         StoreConfig         `mapstructure:"store"`
	Server        ServerConfig        `mapstructure:"server"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type OSVConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// MaxRetries bounds transport retries inside the provider client.
	MaxRetries int `mapstructure:"max_retries"`
}

type TriageConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	RangeOnlyCeiling    float64 `mapstructure:"range_only_ceiling"`
	MaxRetries          int     `mapstructure:"max_retries"`
	MaxContextTokens    int     `mapstructure:"max_context_tokens"`
}

type AnalysisConfig struct {
	MaxDependencies   int           `mapstructure:"max_dependencies"`
	MaxDepth          int           `mapstructure:"max_depth"`
	IncludeTransitive bool          `mapstructure:"include_transitive"`
	Concurrency       int           `mapstructure:"concurrency"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	Deadline          time.Duration `mapstructure:"deadline"`
}

type RepoConfig struct {
	CloneTimeout time.Duration `mapstructure:"clone_timeout"`
}

type StoreConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type NotificationsConfig struct {
	Slack   WebhookConfig `mapstructure:"slack"`
	Discord WebhookConfig `mapstructure:"discord"`
}

type WebhookConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	MinLevel   string `mapstructure:"min_level"`
}

// SetDefaults registers every default and environment binding on viper.
func SetDefaults() {
	viper.SetDefault("debug", false)
	viper.SetDefault("log_file", "")

	viper.SetDefault("osv.base_url", "https://api.osv.dev")
	viper.SetDefault("osv.requests_per_second", 10)
	viper.SetDefault("osv.max_attempts", 4)
	viper.SetDefault("osv.timeout", 30*time.Second)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-3.5-turbo")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.base_url", "")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.max_tokens", 1000)
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("llm.max_retries", 3)

	viper.SetDefault("triage.confidence_threshold", 0.7)
	viper.SetDefault("triage.range_only_ceiling", 0.5)
	viper.SetDefault("triage.max_retries", 2)
	viper.SetDefault("triage.max_context_tokens", 1500)

	viper.SetDefault("analysis.max_dependencies", 1000)
	viper.SetDefault("analysis.max_depth", 10)
	viper.SetDefault("analysis.include_transitive", true)
	viper.SetDefault("analysis.concurrency", 8)
	viper.SetDefault("analysis.call_timeout", 30*time.Second)
	viper.SetDefault("analysis.deadline", 10*time.Minute)

	viper.SetDefault("repo.clone_timeout", 300*time.Second)

	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.dsn", "minotaur.db")

	viper.SetDefault("server.port", 8000)

	viper.SetDefault("notifications.slack.webhook_url", "")
	viper.SetDefault("notifications.slack.min_level", "HIGH")
	viper.SetDefault("notifications.discord.webhook_url", "")
	viper.SetDefault("notifications.discord.min_level", "HIGH")

	viper.SetEnvPrefix("MINOTAUR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Well-known variables are honored when the prefixed ones are unset.
	_ = viper.BindEnv("llm.api_key", "MINOTAUR_LLM_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("notifications.slack.webhook_url", "MINOTAUR_NOTIFICATIONS_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL")
	_ = viper.BindEnv("notifications.discord.webhook_url", "MINOTAUR_NOTIFICATIONS_DISCORD_WEBHOOK_URL", "DISCORD_WEBHOOK_URL")
}

// Load initializes the configuration from .env, the config file and
// environment variables. A missing default config file is not an error; a
// missing or unreadable explicit one is.
func Load(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	return nil
}

// Current decodes the loaded configuration.
func Current() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes the current settings to path unless it already exists.
func WriteDefault(path string) error {
	if err := viper.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
