// Package config loads the lifeos configuration from defaults, an optional
// YAML file, a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LIFEOS_HTTP_PORT.
const EnvPrefix = "LIFEOS"

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerSQLite   = "sqlite"
	LedgerBigQuery = "bigquery"
)

// Archive backends.
const (
	ArchiveNone     = "none"
	ArchiveGCS      = "gcs"
	ArchiveBigQuery = "bigquery"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	HTTP struct {
		Port            int           `mapstructure:"port" yaml:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
		CORSOrigin      string        `mapstructure:"cors_origin" yaml:"cors_origin"`
	} `mapstructure:"http" yaml:"http"`

	Ledger struct {
		Backend    string `mapstructure:"backend" yaml:"backend"`
		SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
		ProjectID  string `mapstructure:"project_id" yaml:"project_id"`
		DatasetID  string `mapstructure:"dataset_id" yaml:"dataset_id"`
	} `mapstructure:"ledger" yaml:"ledger"`

	Oracle struct {
		Provider     string        `mapstructure:"provider" yaml:"provider"`
		Model        string        `mapstructure:"model" yaml:"model"`
		GeminiAPIKey string        `mapstructure:"gemini_api_key" yaml:"-"` // Never serialize API keys
		OpenAIAPIKey string        `mapstructure:"openai_api_key" yaml:"-"`
		BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
		Temperature  float64       `mapstructure:"temperature" yaml:"temperature"`
		Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"oracle" yaml:"oracle"`

	Prompt struct {
		Locale         string   `mapstructure:"locale" yaml:"locale"`
		Location       string   `mapstructure:"location" yaml:"location"`
		Timezone       string   `mapstructure:"timezone" yaml:"timezone"`
		IncludeExample bool     `mapstructure:"include_example" yaml:"include_example"`
		Categories     []string `mapstructure:"categories" yaml:"categories"`
		Priorities     []string `mapstructure:"priorities" yaml:"priorities"`
	} `mapstructure:"prompt" yaml:"prompt"`

	Vocabulary struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"vocabulary" yaml:"vocabulary"`

	Archive struct {
		Backend string `mapstructure:"backend" yaml:"backend"`
		Bucket  string `mapstructure:"bucket" yaml:"bucket"`
		Prefix  string `mapstructure:"prefix" yaml:"prefix"`
	} `mapstructure:"archive" yaml:"archive"`

	Jobs struct {
		QueueSize  int `mapstructure:"queue_size" yaml:"queue_size"`
		Workers    int `mapstructure:"workers" yaml:"workers"`
		MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	} `mapstructure:"jobs" yaml:"jobs"`

	Notion struct {
		Token      string `mapstructure:"token" yaml:"-"`
		DatabaseID string `mapstructure:"database_id" yaml:"database_id"`
	} `mapstructure:"notion" yaml:"notion"`

	Watch struct {
		PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	} `mapstructure:"watch" yaml:"watch"`
}

// Load builds the configuration. configFile may be empty, in which case
// lifeos.yaml is looked up in ./ and $HOME/.lifeos; a missing file is fine.
func Load(configFile string) (*Config, error) {
	// .env is optional; real environment variables always win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lifeos")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lifeos")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.Load: reading config file: %w", err)
		}
	}

	// Well-known variables are accepted without the prefix.
	bindings := map[string][]string{
		"oracle.gemini_api_key": {"LIFEOS_ORACLE_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"oracle.openai_api_key": {"LIFEOS_ORACLE_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"notion.token":          {"LIFEOS_NOTION_TOKEN", "NOTION_TOKEN"},
		"ledger.project_id":     {"LIFEOS_LEDGER_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("config.Load: binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("http.cors_origin", "*")

	v.SetDefault("ledger.backend", LedgerMemory)
	v.SetDefault("ledger.sqlite_path", "data/lifeos.db")
	v.SetDefault("ledger.project_id", "")
	v.SetDefault("ledger.dataset_id", "lifeos")

	v.SetDefault("oracle.provider", "gemini")
	v.SetDefault("oracle.model", "")
	v.SetDefault("oracle.gemini_api_key", "")
	v.SetDefault("oracle.openai_api_key", "")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.temperature", 0.0)
	v.SetDefault("oracle.timeout", 60*time.Second)

	v.SetDefault("prompt.locale", "en-IN")
	v.SetDefault("prompt.location", "Bengaluru, India")
	v.SetDefault("prompt.timezone", "Asia/Kolkata")
	v.SetDefault("prompt.include_example", true)
	v.SetDefault("prompt.categories", []string{})
	v.SetDefault("prompt.priorities", []string{})

	v.SetDefault("vocabulary.file", "")

	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "model-outputs")

	v.SetDefault("jobs.queue_size", 100)
	v.SetDefault("jobs.workers", 5)
	v.SetDefault("jobs.max_retries", 0)

	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")

	v.SetDefault("watch.poll_interval", 2*time.Second)
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", c.Log.Format)
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got: %d", c.HTTP.Port)
	}

	switch c.Ledger.Backend {
	case LedgerMemory:
	case LedgerSQLite:
		if c.Ledger.SQLitePath == "" {
			return fmt.Errorf("ledger.sqlite_path is required for the sqlite backend")
		}
	case LedgerBigQuery:
		if c.Ledger.ProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT or ledger.project_id is required for the bigquery backend")
		}
	default:
		return fmt.Errorf("invalid ledger backend: %s", c.Ledger.Backend)
	}

	switch strings.ToLower(c.Oracle.Provider) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("invalid oracle provider: %s (must be 'gemini' or 'openai')", c.Oracle.Provider)
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		return fmt.Errorf("oracle.temperature must be between 0 and 2, got: %f", c.Oracle.Temperature)
	}

	if _, err := time.LoadLocation(c.Prompt.Timezone); err != nil {
		return fmt.Errorf("invalid prompt.timezone %q: %w", c.Prompt.Timezone, err)
	}

	switch c.Archive.Backend {
	case ArchiveNone:
	case ArchiveGCS:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs archive")
		}
	case ArchiveBigQuery:
		if c.Ledger.ProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT or ledger.project_id is required for the bigquery archive")
		}
	default:
		return fmt.Errorf("invalid archive backend: %s", c.Archive.Backend)
	}

	if c.Jobs.QueueSize < 1 {
		return fmt.Errorf("jobs.queue_size must be positive, got: %d", c.Jobs.QueueSize)
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("jobs.workers must be positive, got: %d", c.Jobs.Workers)
	}
	if c.Jobs.MaxRetries < 0 {
		return fmt.Errorf("jobs.max_retries must not be negative, got: %d", c.Jobs.MaxRetries)
	}

	if c.Watch.PollInterval <= 0 {
		return fmt.Errorf("watch.poll_interval must be positive, got: %s", c.Watch.PollInterval)
	}
	return nil
}

// OracleAPIKey returns the key of the configured provider.
func (c *Config) OracleAPIKey() string {
	if strings.EqualFold(c.Oracle.Provider, "openai") {
		return c.Oracle.OpenAIAPIKey
	}
	return c.Oracle.GeminiAPIKey
}

// PromptLocation returns the time zone plans are dated in.
func (c *Config) PromptLocation() *time.Location {
	loc, err := time.LoadLocation(c.Prompt.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
