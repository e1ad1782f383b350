package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Vision holds everything needed to reach the vision model. These used to be
// browser-local settings of the frontend.
type Vision struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int64
	Timeout      time.Duration
	ExtraHeaders map[string]string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Enabled reports whether the analysis log database is configured.
func (d Database) Enabled() bool {
	return d.Host != ""
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Telemetry struct {
	Endpoint string
	Insecure bool
}

type Config struct {
	Name    string
	Version string
	Env     string

	LogLevel  string
	Host      string
	Port      string
	DebugPort string
	StaticDir string

	Vision    Vision
	Database  Database
	Google    Google
	Telemetry Telemetry
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "localhost")
	v.SetDefault("HTTP_PORT", "9002")
	v.SetDefault("DEBUG_PORT", "6060")
	v.SetDefault("STATIC_DIR", "frontend")
	v.SetDefault("VISION_MODEL", "claude-3-5-sonnet-20241022")
	v.SetDefault("VISION_MAX_TOKENS", 4000)
	v.SetDefault("VISION_TIMEOUT", "120s")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:9002/api/auth/callback")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
}

// Load reads the configuration from the environment. Callers wanting .env
// support load it first.
func Load(v *viper.Viper, name string, version string) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Name:      name,
		Version:   version,
		Env:       v.GetString("APP_ENV"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		Host:      v.GetString("HTTP_HOST"),
		Port:      v.GetString("HTTP_PORT"),
		DebugPort: v.GetString("DEBUG_PORT"),
		StaticDir: v.GetString("STATIC_DIR"),
		Vision: Vision{
			APIKey:       v.GetString("ANTHROPIC_API_KEY"),
			BaseURL:      v.GetString("ANTHROPIC_BASE_URL"),
			Model:        v.GetString("VISION_MODEL"),
			MaxTokens:    v.GetInt64("VISION_MAX_TOKENS"),
			Timeout:      v.GetDuration("VISION_TIMEOUT"),
			ExtraHeaders: v.GetStringMapString("VISION_EXTRA_HEADERS"),
		},
		Database: Database{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
		Google: Google{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		},
		Telemetry: Telemetry{
			Endpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure: v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		},
	}

	err := cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("HTTP_PORT is required"))
	}

	if c.Vision.Model == "" {
		errs = append(errs, errors.New("VISION_MODEL is required"))
	}

	if c.Vision.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("VISION_MAX_TOKENS must be positive, got %d", c.Vision.MaxTokens))
	}

	if c.Vision.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("VISION_TIMEOUT must be positive, got %s", c.Vision.Timeout))
	}

	if c.Database.Enabled() && (c.Database.User == "" || c.Database.Name == "") {
		errs = append(errs, errors.New("DB_USER and DB_NAME are required when DB_HOST is set"))
	}

	return errors.Join(errs...)
}

func NewLogger(out io.Writer, env string, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if env == "local" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Default loads .env, reads the configuration and installs the global logger.
// The returned context carries that logger.
func Default(ctx context.Context, name string, version string) (context.Context, Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(viper.New(), name, version)
	if err != nil {
		return log.Logger.WithContext(ctx), Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Logger = NewLogger(os.Stdout, cfg.Env, cfg.LogLevel).With().
		Str("service", name).Str("version", version).Logger()
	zerolog.DefaultContextLogger = &log.Logger

	return log.Logger.WithContext(ctx), cfg, nil
}
