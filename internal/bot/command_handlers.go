package bot

import (
	"context"
	"errors"
	"fmt"

	"pdfsummarizer/internal/domain"
)

const welcomeText = `🤖 *Welcome to PDF Summarizer\!*

I can summarize any text in three short paragraphs\. Choose how you want to give it to me:

– *Text* mode: send me the text as a message
– *PDF* mode: upload a PDF document, I will extract its text and summarize it

Switch modes any time with /mode\. Send /help for details\.`

const helpText = `❔ *How it works*

1\. Pick an input mode with /mode
2\. In *Text* mode send the text you want summarized
3\. In *PDF* mode upload a PDF file \(up to %s\)

I will answer with the extracted text \(for PDFs\) and a summary\.`

const modeText = `⚙️ *Input mode*

Current mode is *%s*\.

You can choose a different mode below:`

const pdfUnavailableNote = `

⚠️ PDF mode is not available on this server\.`

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64, userID int64) error {
	settings, err := b.db.GetUserSettingsWithDefault(ctx, userID)
	if err != nil {
		b.log.WarnContext(ctx, "Failed to get user settings so default will be used",
			"error", err,
			"userID", userID)

		settings = &domain.UserSettings{UserID: userID, Mode: domain.ModeText}
	}

	return b.sendMessage(ctx, chatID, welcomeText, getModeKeyboard(settings.Mode))
}

func (b *Bot) handleHelpCommand(ctx context.Context, chatID int64) error {
	return b.sendMessage(ctx, chatID, fmt.Sprintf(helpText, formatBytes(b.maxDocumentBytes)), nil)
}

func (b *Bot) handleModeCommand(ctx context.Context, chatID int64, userID int64) error {
	settings, err := b.db.GetUserSettingsWithDefault(ctx, userID)
	if err != nil {
		errs := []error{fmt.Errorf("get user settings with default: %w", err)}

		sendErr := b.sendMessage(ctx, chatID, "❌ Failed\\.", nil)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	text := fmt.Sprintf(modeText, modeTitle(settings.Mode))
	if !b.pipeline.DocumentsEnabled() {
		text += pdfUnavailableNote
	}

	if err = b.sendMessage(ctx, chatID, text, getModeKeyboard(settings.Mode)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func modeTitle(mode domain.Mode) string {
	if mode == domain.ModePDF {
		return "PDF"
	}
	return "Text"
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
