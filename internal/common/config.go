package common

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/proposal-extractor/constants"
)

// EnvPrefix is prepended to every configuration key looked up in the environment.
const EnvPrefix = "PROPOSAL"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Raster   RasterConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Batch    BatchConfig
	Log      LogConfig
}

// DatabaseConfig holds extraction journal configuration. An empty DSN
// disables the journal.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP host configuration
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
}

// RasterConfig holds page rendering configuration
type RasterConfig struct {
	Pdftoppm      string
	HeicConverter string
	DPI           int
	MaxPages      int
	ScratchDir    string
}

// LLMConfig holds reasoning service configuration
type LLMConfig struct {
	Provider    string // openai | anthropic | gemini
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// StorageConfig holds object storage credentials for s3:// sources.
type StorageConfig struct {
	AwsRegion    string
	AwsAccessKey string
	AwsSecretKey string
	HTTPTimeout  time.Duration
}

// BatchConfig holds worker queue configuration
type BatchConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	RatePerMinute  int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // json | text
}

var defaultModels = map[string]string{
	"openai":    "gpt-4o",
	"anthropic": "claude-sonnet-4-5",
	"gemini":    "gemini-2.5-flash",
}

var providerKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 3*time.Minute)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.max_upload_bytes", int64(constants.MaxDocumentBytes))

	v.SetDefault("raster.pdftoppm", "pdftoppm")
	v.SetDefault("raster.heic_converter", "magick")
	v.SetDefault("raster.dpi", constants.DefaultDPI)
	v.SetDefault("raster.max_pages", constants.DefaultMaxPages)
	v.SetDefault("raster.scratch_dir", "")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", constants.DefaultTemperature)
	v.SetDefault("llm.max_tokens", constants.DefaultMaxTokens)
	v.SetDefault("llm.timeout", 2*time.Minute)

	v.SetDefault("storage.aws_region", "us-east-2")
	v.SetDefault("storage.aws_access_key", "")
	v.SetDefault("storage.aws_secret_key", "")
	v.SetDefault("storage.http_timeout", 30*time.Second)

	v.SetDefault("batch.workers", 2)
	v.SetDefault("batch.queue_size", 64)
	v.SetDefault("batch.process_timeout", 5*time.Minute)
	v.SetDefault("batch.rate_per_minute", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig loads configuration from an optional .env file, an optional
// YAML config file and PROPOSAL_* environment variables (highest precedence).
func LoadConfig(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
	} else {
		v.SetConfigName("proposal-extract")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, NewAppError("CONFIG_ERROR", "read config file", err)
			}
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			DSN:              v.GetString("database.dsn"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			MaxConnLifetime:  v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("database.max_conn_idle_time"),
			DialTimeout:      v.GetDuration("database.dial_timeout"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
		},
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
			MaxUploadBytes: v.GetInt64("server.max_upload_bytes"),
		},
		Raster: RasterConfig{
			Pdftoppm:      v.GetString("raster.pdftoppm"),
			HeicConverter: v.GetString("raster.heic_converter"),
			DPI:           v.GetInt("raster.dpi"),
			MaxPages:      v.GetInt("raster.max_pages"),
			ScratchDir:    v.GetString("raster.scratch_dir"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: float32(v.GetFloat64("llm.temperature")),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Timeout:     v.GetDuration("llm.timeout"),
		},
		Storage: StorageConfig{
			AwsRegion:    v.GetString("storage.aws_region"),
			AwsAccessKey: v.GetString("storage.aws_access_key"),
			AwsSecretKey: v.GetString("storage.aws_secret_key"),
			HTTPTimeout:  v.GetDuration("storage.http_timeout"),
		},
		Batch: BatchConfig{
			Workers:        v.GetInt("batch.workers"),
			QueueSize:      v.GetInt("batch.queue_size"),
			ProcessTimeout: v.GetDuration("batch.process_timeout"),
			RatePerMinute:  v.GetInt("batch.rate_per_minute"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}
	if cfg.LLM.APIKey == "" {
		if env, ok := providerKeyEnv[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = os.Getenv(env)
		}
	}
	return cfg
}

// Validate checks the loaded configuration before any component is wired.
func (c *Config) Validate() error {
	if _, ok := defaultModels[c.LLM.Provider]; !ok {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown llm provider %q (want openai | anthropic | gemini)", c.LLM.Provider), ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("api key for %s is required (set %s_LLM_API_KEY or %s)", c.LLM.Provider, EnvPrefix, providerKeyEnv[c.LLM.Provider]), ErrInvalidInput)
	}
	if c.Raster.MaxPages < 0 {
		return NewAppError("CONFIG_ERROR", "raster.max_pages must not be negative", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "batch.workers must be positive", ErrInvalidInput)
	}
	return nil
}
