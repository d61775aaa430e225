package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"pdfsummarizer/internal/domain"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	OpenAIKey        string `env:"AZURE_OPENAI_KEY,required,notEmpty"`
	OpenAIEndpoint   string `env:"AZURE_OPENAI_ENDPOINT,required,notEmpty"`
	OpenAIDeployment string `env:"AZURE_OPENAI_DEPLOYMENT_NAME,required,notEmpty"`
	OpenAIAPIVersion string `env:"AZURE_OPENAI_API_VERSION"                      envDefault:"2024-02-01"`

	FormRecognizerKey        string        `env:"AZURE_FORM_RECOGNIZER_KEY"`
	FormRecognizerEndpoint   string        `env:"AZURE_FORM_RECOGNIZER_ENDPOINT"`
	FormRecognizerAPIVersion string        `env:"AZURE_FORM_RECOGNIZER_API_VERSION" envDefault:"2023-07-31"`
	OCRTimeout               time.Duration `env:"OCR_TIMEOUT"                       envDefault:"2m"`
	OCRPollInterval          time.Duration `env:"OCR_POLL_INTERVAL"                 envDefault:"1s"`

	Summary SummaryConfig `envPrefix:"SUMMARY_"`

	Token            string        `env:"TOKEN"`
	AllowedUsers     []int64       `env:"ALLOWED_USERS"`
	DBPath           string        `env:"DB_PATH"            envDefault:"db.sqlite"`
	BotUpdateTimeout time.Duration `env:"BOT_UPDATE_TIMEOUT" envDefault:"5m"`

	HTTPEnabled   bool    `env:"HTTP_ENABLED"    envDefault:"true"`
	HTTPAddr      string  `env:"HTTP_ADDR"       envDefault:":8080"`
	HTTPRateLimit float64 `env:"HTTP_RATE_LIMIT" envDefault:"1"`
	HTTPRateBurst int     `env:"HTTP_RATE_BURST" envDefault:"5"`

	MaxDocumentBytes int64  `env:"MAX_DOCUMENT_BYTES" envDefault:"20971520"`
	LogLevel         string `env:"LOG_LEVEL"          envDefault:"info"`
}

// SummaryConfig overrides the generation parameters of the completion call.
type SummaryConfig struct {
	MaxTokens        int64   `env:"MAX_TOKENS"        envDefault:"500"`
	Temperature      float64 `env:"TEMPERATURE"       envDefault:"0.7"`
	TopP             float64 `env:"TOP_P"             envDefault:"0.9"`
	FrequencyPenalty float64 `env:"FREQUENCY_PENALTY" envDefault:"0"`
	PresencePenalty  float64 `env:"PRESENCE_PENALTY"  envDefault:"0"`
}

// Load reads the environment and validates the result. Every failure is a
// ConfigurationError.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, domain.NewError(domain.KindConfiguration, "parse environment", err)
	}

	cfg.normalize()

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.OpenAIKey = strings.TrimSpace(c.OpenAIKey)
	c.OpenAIEndpoint = strings.TrimSpace(c.OpenAIEndpoint)
	c.OpenAIDeployment = strings.TrimSpace(c.OpenAIDeployment)
	c.FormRecognizerKey = strings.TrimSpace(c.FormRecognizerKey)
	c.FormRecognizerEndpoint = strings.TrimSpace(c.FormRecognizerEndpoint)
	c.Token = strings.TrimSpace(c.Token)
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
}

func (c Config) Validate() error {
	var errs []error

	if err := validateEndpoint("AZURE_OPENAI_ENDPOINT", c.OpenAIEndpoint); err != nil {
		errs = append(errs, err)
	}

	if (c.FormRecognizerKey == "") != (c.FormRecognizerEndpoint == "") {
		errs = append(errs, errors.New(
			"AZURE_FORM_RECOGNIZER_KEY and AZURE_FORM_RECOGNIZER_ENDPOINT must be set together",
		))
	} else if c.OCREnabled() {
		if err := validateEndpoint("AZURE_FORM_RECOGNIZER_ENDPOINT", c.FormRecognizerEndpoint); err != nil {
			errs = append(errs, err)
		}
	}

	if c.OCRTimeout <= 0 {
		errs = append(errs, fmt.Errorf("OCR_TIMEOUT must be positive, got %s", c.OCRTimeout))
	}
	if c.OCRPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("OCR_POLL_INTERVAL must be positive, got %s", c.OCRPollInterval))
	}

	errs = append(errs, c.Summary.validate()...)

	if c.Token == "" && !c.HTTPEnabled {
		errs = append(errs, errors.New("TOKEN must be set when HTTP_ENABLED is false"))
	}
	if c.MaxDocumentBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_DOCUMENT_BYTES must be positive, got %d", c.MaxDocumentBytes))
	}
	if c.HTTPRateLimit <= 0 || c.HTTPRateBurst <= 0 {
		errs = append(errs, errors.New("HTTP_RATE_LIMIT and HTTP_RATE_BURST must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return domain.NewError(domain.KindConfiguration, "invalid configuration", err)
	}

	return nil
}

// OCREnabled reports whether document analysis credentials are present.
func (c Config) OCREnabled() bool {
	return c.FormRecognizerKey != "" && c.FormRecognizerEndpoint != ""
}

func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (s SummaryConfig) validate() []error {
	var errs []error

	if s.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("SUMMARY_MAX_TOKENS must be positive, got %d", s.MaxTokens))
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		errs = append(errs, fmt.Errorf("SUMMARY_TEMPERATURE must be in [0, 2], got %v", s.Temperature))
	}
	if s.TopP <= 0 || s.TopP > 1 {
		errs = append(errs, fmt.Errorf("SUMMARY_TOP_P must be in (0, 1], got %v", s.TopP))
	}
	if s.FrequencyPenalty < -2 || s.FrequencyPenalty > 2 {
		errs = append(errs, fmt.Errorf("SUMMARY_FREQUENCY_PENALTY must be in [-2, 2], got %v", s.FrequencyPenalty))
	}
	if s.PresencePenalty < -2 || s.PresencePenalty > 2 {
		errs = append(errs, fmt.Errorf("SUMMARY_PRESENCE_PENALTY must be in [-2, 2], got %v", s.PresencePenalty))
	}

	return errs
}

func validateEndpoint(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}
