package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdfsummarizer/internal/domain"
	"pdfsummarizer/internal/markdown"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	sendSpinnerInterval = 3 * time.Second

	// Leaves room for the section header in the first chunk.
	chunkLimit = markdown.MaxMessageLen - 96

	extractedHeader = "📄 *Extracted text*"
	summaryHeader   = "📝 *Summary*"
)

func (b *Bot) sendMessage(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard [][]models.InlineKeyboardButton,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	params := &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   normalizedText,
		// See https://core.telegram.org/bots/api#markdownv2-style.
		ParseMode: models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: tgbot.True(),
		},
	}
	if len(keyboard) > 0 {
		params.ReplyMarkup = &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
	}

	return b.rateLimiter.Do(ctx, chatID, func(ctx context.Context) error {
		_, err := b.api.SendMessage(ctx, params)
		return err
	})
}

// sendSection sends a bold header followed by body, split across as many
// messages as Telegram's length limit requires.
func (b *Bot) sendSection(ctx context.Context, chatID int64, header string, body string) error {
	chunks := markdown.Split(body, chunkLimit)
	if len(chunks) == 0 {
		return b.sendMessage(ctx, chatID, header, nil)
	}

	var errs []error

	for i, chunk := range chunks {
		text := markdown.EscapeV2(chunk)
		if i == 0 {
			text = header + "\n\n" + text
		}

		if err := b.sendMessage(ctx, chatID, text, nil); err != nil {
			errs = append(errs, fmt.Errorf("send chunk %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

func (b *Bot) sendOutcome(ctx context.Context, chatID int64, outcome domain.Outcome) error {
	var errs []error

	if outcome.Mode == domain.ModePDF {
		if err := b.sendSection(ctx, chatID, extractedHeader, outcome.Extracted); err != nil {
			errs = append(errs, fmt.Errorf("send extracted text: %w", err))
		}
	}

	summary := strings.Join(outcome.Paragraphs(), "\n\n")
	if err := b.sendSection(ctx, chatID, summaryHeader, summary); err != nil {
		errs = append(errs, fmt.Errorf("send summary: %w", err))
	}

	return errors.Join(errs...)
}

// sendFailure renders a pipeline error and returns it joined with any send
// error so the caller can log both.
func (b *Bot) sendFailure(ctx context.Context, chatID int64, err error) error {
	errs := []error{err}

	if sendErr := b.sendMessage(ctx, chatID, errorText(err), nil); sendErr != nil {
		errs = append(errs, fmt.Errorf("send message: %w", sendErr))
	}

	return errors.Join(errs...)
}

func errorText(err error) string {
	kind := domain.KindOf(err)
	detail := domain.MessageOf(err)

	if kind == domain.KindValidation {
		return "⚠️ " + markdown.EscapeV2(detail)
	}

	text := fmt.Sprintf("❌ *%s*\n\n%s", markdown.EscapeV2(string(kind)), markdown.EscapeV2(kind.UserMessage()))
	if detail != "" && detail != kind.UserMessage() {
		text += "\n\n" + markdown.EscapeV2(detail)
	}

	return text
}

func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	_, err := b.api.SendChatAction(ctx, &tgbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	if err != nil && ctx.Err() == nil {
		b.log.ErrorContext(ctx, "Failed to send chat action",
			"error", err)
	}
}

func (b *Bot) withSpinner(ctx context.Context, chatID int64, fn func() error) error {
	spinnerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		b.sendTyping(spinnerCtx, chatID)

		t := time.NewTicker(sendSpinnerInterval)
		defer t.Stop()

		for {
			select {
			case <-spinnerCtx.Done():
				return
			case <-t.C:
				b.sendTyping(spinnerCtx, chatID)
			}
		}
	}()

	return fn()
}
