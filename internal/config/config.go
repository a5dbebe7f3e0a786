package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

const EnvPrefix = "NUTRILOG"

var placeholderBotTokens = map[string]struct{}{
	"change_me":                   {},
	"change_me_in_production":     {},
	"replace_with_your_bot_token": {},
	"123456:abc-def":              {},
}

// Config is read from NUTRILOG_* environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	Timezone string `envconfig:"TIMEZONE" default:"Europe/Kyiv"`

	DBDriver       string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath         string `envconfig:"DB_PATH" default:"data/nutrilog.db"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`

	InitDataMaxAge    time.Duration `envconfig:"INIT_DATA_MAX_AGE" default:"24h"`
	InitDataClockSkew time.Duration `envconfig:"INIT_DATA_CLOCK_SKEW" default:"1m"`

	GeminiAPIKey   string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel    string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GeminiBaseURL  string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	AnalyzeTimeout time.Duration `envconfig:"ANALYZE_TIMEOUT" default:"30s"`

	PhotoRatePerMinute int    `envconfig:"PHOTO_RATE_PER_MINUTE" default:"6"`
	RedisURL           string `envconfig:"REDIS_URL"`
	AMQPURL            string `envconfig:"AMQP_URL"`
	AMQPExchange       string `envconfig:"AMQP_EXCHANGE" default:"nutrilog.events"`

	CORSAllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	DefaultLanguage  string `envconfig:"DEFAULT_LANGUAGE" default:"uk"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty        bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads an optional .env file, then the environment. Variables that are
// already set win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (cfg *Config) normalize() {
	cfg.BotToken = strings.TrimSpace(cfg.BotToken)
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	cfg.DefaultLanguage = strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
}

// Validate checks everything needed to serve requests.
func (cfg Config) Validate() error {
	var errs []error

	if err := ValidateBotToken(cfg.BotToken); err != nil {
		errs = append(errs, err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("%s_HTTP_PORT must be between 1 and 65535, got %d", EnvPrefix, cfg.HTTPPort))
	}
	errs = append(errs, cfg.ValidateStorage())
	if _, err := cfg.Location(); err != nil {
		errs = append(errs, err)
	}
	if cfg.InitDataMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("%s_INIT_DATA_MAX_AGE must be positive", EnvPrefix))
	}
	if cfg.InitDataClockSkew < 0 {
		errs = append(errs, fmt.Errorf("%s_INIT_DATA_CLOCK_SKEW must not be negative", EnvPrefix))
	}
	if cfg.AnalyzeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s_ANALYZE_TIMEOUT must be positive", EnvPrefix))
	}
	if cfg.PhotoRatePerMinute <= 0 {
		errs = append(errs, fmt.Errorf("%s_PHOTO_RATE_PER_MINUTE must be positive", EnvPrefix))
	}

	return errors.Join(errs...)
}

// ValidateStorage checks only the database settings, for commands that do
// not serve requests.
func (cfg Config) ValidateStorage() error {
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return fmt.Errorf("%s_DB_PATH is required for sqlite", EnvPrefix)
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("%s_DATABASE_URL is required for postgres", EnvPrefix)
		}
	default:
		return fmt.Errorf("%s_DB_DRIVER must be sqlite or postgres, got %q", EnvPrefix, cfg.DBDriver)
	}
	if cfg.DBMaxOpenConns <= 0 {
		return fmt.Errorf("%s_DB_MAX_OPEN_CONNS must be positive", EnvPrefix)
	}
	return nil
}

func ValidateBotToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%s_BOT_TOKEN is required", EnvPrefix)
	}
	if _, placeholder := placeholderBotTokens[strings.ToLower(token)]; placeholder {
		return fmt.Errorf("%s_BOT_TOKEN uses an example placeholder", EnvPrefix)
	}
	if !strings.Contains(token, ":") {
		return fmt.Errorf("%s_BOT_TOKEN must look like <bot id>:<secret>", EnvPrefix)
	}
	return nil
}

func (cfg Config) Location() (*time.Location, error) {
	location, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone))
	if err != nil {
		return nil, fmt.Errorf("%s_TIMEZONE %q: %w", EnvPrefix, cfg.Timezone, err)
	}
	return location, nil
}

func (cfg Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", cfg.HTTPPort)
}

// LogSummary reports the loaded configuration with secrets reduced to
// present/absent flags.
func (cfg Config) LogSummary(log zerolog.Logger) {
	log.Info().
		Int("port", cfg.HTTPPort).
		Str("timezone", cfg.Timezone).
		Str("db_driver", cfg.DBDriver).
		Str("db_path", cfg.DBPath).
		Bool("database_url_present", cfg.DatabaseURL != "").
		Bool("bot_token_present", cfg.BotToken != "").
		Bool("gemini_api_key_present", cfg.GeminiAPIKey != "").
		Str("gemini_model", cfg.GeminiModel).
		Bool("redis_enabled", cfg.RedisURL != "").
		Bool("amqp_enabled", cfg.AMQPURL != "").
		Dur("init_data_max_age", cfg.InitDataMaxAge).
		Str("default_language", cfg.DefaultLanguage).
		Msg("configuration loaded")
}
