package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdfsummarizer/internal/bot"
	"pdfsummarizer/internal/config"
	"pdfsummarizer/internal/database"
	"pdfsummarizer/internal/httpapi"
	"pdfsummarizer/internal/metrics"
	"pdfsummarizer/internal/ocr"
	"pdfsummarizer/internal/pipeline"
	"pdfsummarizer/internal/summarizer"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	start := time.Now()

	dotenvErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		log.Error("Failed to load config",
			"error", err)

		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	if dotenvErr != nil && !errors.Is(dotenvErr, os.ErrNotExist) {
		log.Warn("Failed to read .env file",
			"error", dotenvErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	p, err := initPipeline(ctx, cfg, m, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize pipeline",
			"error", err)

		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Token != "" {
		db, err := database.New(ctx, cfg.DBPath, log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to initialize db",
				"error", err,
				"dbPath", cfg.DBPath)

			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.ErrorContext(ctx, "Failed to close db",
					"error", err,
					"dbPath", cfg.DBPath)
			}
		}()
		log.InfoContext(ctx, "DB is initialized",
			"dbPath", cfg.DBPath)

		botInst, err := bot.New(bot.Config{
			Token:            cfg.Token,
			AllowedUsers:     cfg.AllowedUsers,
			MaxDocumentBytes: cfg.MaxDocumentBytes,
			UpdateTimeout:    cfg.BotUpdateTimeout,
		}, db, p, m, log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to initialize bot",
				"error", err,
				"allowedUsersCount", len(cfg.AllowedUsers))

			return err
		}
		defer botInst.Stop()
		log.InfoContext(ctx, "Bot is initialized",
			"allowedUsersCount", len(cfg.AllowedUsers))

		g.Go(func() error {
			botInst.Start(gctx)
			return nil
		})
	} else {
		log.InfoContext(ctx, "TOKEN is empty so the bot is disabled",
			"envVar", "TOKEN")
	}

	if cfg.HTTPEnabled {
		srv := httpapi.New(httpapi.Config{
			Addr:             cfg.HTTPAddr,
			MaxDocumentBytes: cfg.MaxDocumentBytes,
			RateLimit:        cfg.HTTPRateLimit,
			RateBurst:        cfg.HTTPRateBurst,
		}, p, m, log)

		g.Go(srv.ListenAndServe)
		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("Failed to shut down HTTP server",
					"error", err)

				return err
			}
			log.Info("HTTP server is stopped")

			return nil
		})
	}

	err = g.Wait()

	log.Info("Exiting...",
		"error", err,
		"uptimeSeconds", time.Since(start).Seconds())

	return err
}

func initPipeline(
	ctx context.Context,
	cfg config.Config,
	m *metrics.Metrics,
	log *slog.Logger,
) (*pipeline.Pipeline, error) {
	sum, err := summarizer.NewAzureSummarizer(summarizer.Config{
		Endpoint:   cfg.OpenAIEndpoint,
		APIKey:     cfg.OpenAIKey,
		Deployment: cfg.OpenAIDeployment,
		APIVersion: cfg.OpenAIAPIVersion,
		Params: summarizer.Params{
			MaxTokens:        cfg.Summary.MaxTokens,
			Temperature:      cfg.Summary.Temperature,
			TopP:             cfg.Summary.TopP,
			FrequencyPenalty: cfg.Summary.FrequencyPenalty,
			PresencePenalty:  cfg.Summary.PresencePenalty,
		},
	}, log)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "Azure OpenAI summarizer is initialized",
		"deployment", cfg.OpenAIDeployment,
		"apiVersion", cfg.OpenAIAPIVersion)

	pcfg := pipeline.Config{
		Summarizer: sum,
		Observer:   m,
		Logger:     log,
	}

	if cfg.OCREnabled() {
		reader, err := ocr.NewReadClient(ocr.Config{
			Endpoint:     cfg.FormRecognizerEndpoint,
			Key:          cfg.FormRecognizerKey,
			APIVersion:   cfg.FormRecognizerAPIVersion,
			PollInterval: cfg.OCRPollInterval,
			Timeout:      cfg.OCRTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		pcfg.OCR = reader

		log.InfoContext(ctx, "Form Recognizer reader is initialized",
			"apiVersion", cfg.FormRecognizerAPIVersion,
			"timeout", cfg.OCRTimeout.String())
	} else {
		log.WarnContext(ctx, "Form Recognizer is not configured so documents are disabled",
			"envVar", "AZURE_FORM_RECOGNIZER_ENDPOINT")
	}

	return pipeline.New(pcfg)
}
