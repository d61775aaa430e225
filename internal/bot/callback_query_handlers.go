package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdfsummarizer/internal/domain"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) error {
	data := strings.TrimSpace(callback.Data)

	if modeStr, ok := strings.CutPrefix(data, modeCallbackPrefix); ok {
		return b.handleModeQuery(ctx, modeStr, callback)
	}

	return b.answerCallback(ctx, callback, "")
}

func (b *Bot) handleModeQuery(
	ctx context.Context,
	modeStr string,
	callback *models.CallbackQuery,
) error {
	mode, ok := domain.ParseMode(modeStr)
	if !ok {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("parse mode %q", modeStr))
	}

	if err := b.db.UpsertUserSettings(ctx, &domain.UserSettings{
		UserID: callback.From.ID,
		Mode:   mode,
	}); err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("upsert user settings: %w", err))
	}

	if err := b.answerCallback(ctx, callback, "✅ Mode is updated."); err != nil {
		return err
	}

	return b.handleModeCommand(ctx, callbackChatID(callback), callback.From.ID)
}

func (b *Bot) answerCallback(ctx context.Context, callback *models.CallbackQuery, text string) error {
	if _, err := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            text,
	}); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return nil
}

func (b *Bot) errorCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	err error,
) error {
	if sendErr := b.answerCallback(ctx, callback, "❌ Failed."); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}
