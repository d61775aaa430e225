package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"pdfsummarizer/internal/domain"
	"pdfsummarizer/internal/ratelimiter"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	defaultUpdateTimeout    = 5 * time.Minute
	defaultMaxDocumentBytes = 20 << 20
	downloadTimeout         = time.Minute
)

// Pipeline is the summarization entry point the bot drives.
type Pipeline interface {
	SummarizeText(ctx context.Context, text string) (domain.Outcome, error)
	SummarizeDocument(ctx context.Context, document []byte) (domain.Outcome, error)
	DocumentsEnabled() bool
}

// SettingsStore persists the input mode each user picked.
type SettingsStore interface {
	GetUserSettingsWithDefault(ctx context.Context, userID int64) (*domain.UserSettings, error)
	UpsertUserSettings(ctx context.Context, userSettings *domain.UserSettings) error
}

type UpdateObserver interface {
	ObserveBotUpdate(updateType string)
}

type Config struct {
	Token            string
	AllowedUsers     []int64
	MaxDocumentBytes int64
	UpdateTimeout    time.Duration
	// ServerURL overrides the Bot API address, mostly for tests.
	ServerURL  string
	HTTPClient *http.Client
}

type Bot struct {
	api              *tgbot.Bot
	rateLimiter      *ratelimiter.RateLimiter
	db               SettingsStore
	pipeline         Pipeline
	observer         UpdateObserver
	httpClient       *http.Client
	allowedUsers     []int64
	maxDocumentBytes int64
	updateTimeout    time.Duration
	log              *slog.Logger
}

func New(
	cfg Config,
	db SettingsStore,
	pipeline Pipeline,
	observer UpdateObserver,
	log *slog.Logger,
) (*Bot, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("token is empty")
	}

	b := &Bot{
		rateLimiter:      ratelimiter.New(log),
		db:               db,
		pipeline:         pipeline,
		observer:         observer,
		httpClient:       cfg.HTTPClient,
		allowedUsers:     cfg.AllowedUsers,
		maxDocumentBytes: cfg.MaxDocumentBytes,
		updateTimeout:    cfg.UpdateTimeout,
		log:              log,
	}
	if b.httpClient == nil {
		b.httpClient = &http.Client{Timeout: downloadTimeout}
	}
	if b.maxDocumentBytes <= 0 {
		b.maxDocumentBytes = defaultMaxDocumentBytes
	}
	if b.updateTimeout <= 0 {
		b.updateTimeout = defaultUpdateTimeout
	}

	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(b.handleUpdate),
		tgbot.WithErrorsHandler(func(err error) {
			log.Error("Bot API error",
				"error", err)
		}),
	}
	if cfg.ServerURL != "" {
		opts = append(opts, tgbot.WithServerURL(cfg.ServerURL), tgbot.WithSkipGetMe())
	}

	api, err := tgbot.New(token, opts...)
	if err != nil {
		b.rateLimiter.Stop()
		return nil, err
	}
	b.api = api

	return b, nil
}

// Start long-polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, b.updateTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		b.observe("message")

		message := update.Message
		chatID := message.Chat.ID

		var userID int64
		var username string
		if message.From != nil {
			userID = message.From.ID
			username = message.From.Username
		}

		if !b.userAllowed(userID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", userID,
				"chatID", chatID,
				"username", username,
				"chatType", message.Chat.Type)

			return
		}

		if err := b.handleMessage(updateCtx, message, userID); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", chatID,
				"userID", userID,
				"chatType", message.Chat.Type,
				"messageID", message.ID)
		}

	case update.CallbackQuery != nil:
		b.observe("callback_query")

		callback := update.CallbackQuery
		chatID := callbackChatID(callback)

		if !b.userAllowed(callback.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", callback.From.ID,
				"chatID", chatID,
				"username", callback.From.Username,
				"data", callback.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, callback); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", chatID,
				"userID", callback.From.ID,
				"data", callback.Data)
		}

	default:
		b.observe("other")
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	if len(b.allowedUsers) == 0 {
		return true
	}
	return slices.Contains(b.allowedUsers, userID)
}

func (b *Bot) observe(updateType string) {
	if b.observer != nil {
		b.observer.ObserveBotUpdate(updateType)
	}
}

func callbackChatID(cb *models.CallbackQuery) int64 {
	if cb.Message.Message != nil {
		return cb.Message.Message.Chat.ID
	}

	return cb.From.ID
}
