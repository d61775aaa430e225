package config

import (
	"log/slog"
	"testing"
	"time"

	"pdfsummarizer/internal/domain"
)

func setRequired(t *testing.T) {
	t.Helper()

	t.Setenv("AZURE_OPENAI_KEY", "key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_NAME", "summaries")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OpenAIAPIVersion != "2024-02-01" {
		t.Fatalf("unexpected API version %q", cfg.OpenAIAPIVersion)
	}
	if cfg.OCREnabled() {
		t.Fatalf("expected OCR to be disabled without credentials")
	}
	if cfg.OCRTimeout != 2*time.Minute || cfg.OCRPollInterval != time.Second {
		t.Fatalf("unexpected OCR timings %s / %s", cfg.OCRTimeout, cfg.OCRPollInterval)
	}

	want := SummaryConfig{MaxTokens: 500, Temperature: 0.7, TopP: 0.9}
	if cfg.Summary != want {
		t.Fatalf("expected %+v, got %+v", want, cfg.Summary)
	}

	if cfg.DBPath != "db.sqlite" || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults %q %q", cfg.DBPath, cfg.HTTPAddr)
	}
	if cfg.MaxDocumentBytes != 20<<20 {
		t.Fatalf("unexpected max document bytes %d", cfg.MaxDocumentBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("AZURE_FORM_RECOGNIZER_KEY", "fr-key")
	t.Setenv("AZURE_FORM_RECOGNIZER_ENDPOINT", "https://example.cognitiveservices.azure.com/")
	t.Setenv("SUMMARY_MAX_TOKENS", "800")
	t.Setenv("SUMMARY_TEMPERATURE", "0.2")
	t.Setenv("ALLOWED_USERS", "1,2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.OCREnabled() {
		t.Fatalf("expected OCR to be enabled")
	}
	if cfg.Summary.MaxTokens != 800 || cfg.Summary.Temperature != 0.2 {
		t.Fatalf("overrides not applied: %+v", cfg.Summary)
	}
	if len(cfg.AllowedUsers) != 2 || cfg.AllowedUsers[1] != 2 {
		t.Fatalf("unexpected allowed users %v", cfg.AllowedUsers)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("unexpected log level %v", cfg.SlogLevel())
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			"Missing deployment",
			map[string]string{"AZURE_OPENAI_DEPLOYMENT_NAME": ""},
		},
		{
			"Only OCR key",
			map[string]string{"AZURE_FORM_RECOGNIZER_KEY": "fr-key"},
		},
		{
			"Relative endpoint",
			map[string]string{"AZURE_OPENAI_ENDPOINT": "example.openai.azure.com"},
		},
		{
			"Temperature out of range",
			map[string]string{"SUMMARY_TEMPERATURE": "3"},
		},
		{
			"Zero max tokens",
			map[string]string{"SUMMARY_MAX_TOKENS": "0"},
		},
		{
			"No surface",
			map[string]string{"HTTP_ENABLED": "false"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range test.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error")
			}
			if kind := domain.KindOf(err); kind != domain.KindConfiguration {
				t.Fatalf("expected %s, got %s", domain.KindConfiguration, kind)
			}
		})
	}
}
