package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pdfsummarizer/internal/domain"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	pdfMimeType = "application/pdf"

	downloadFailedText = "Failed to fetch the document from Telegram."
)

const switchToPDFText = `📄 *PDF mode is on*

Upload a PDF document to summarize it, or switch to text mode below:`

const switchToTextText = `📝 *Text mode is on*

Send the text you want summarized, or switch to PDF mode below to upload documents:`

func (b *Bot) handleMessage(ctx context.Context, message *models.Message, userID int64) error {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		return b.handleStartCommand(ctx, chatID, userID)
	case strings.HasPrefix(text, "/mode"):
		return b.handleModeCommand(ctx, chatID, userID)
	case strings.HasPrefix(text, "/help"):
		return b.handleHelpCommand(ctx, chatID)
	}

	settings, err := b.db.GetUserSettingsWithDefault(ctx, userID)
	if err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("get user settings with default: %w", err))
	}

	switch {
	case message.Document != nil && settings.Mode == domain.ModePDF:
		return b.handleDocument(ctx, chatID, message.Document)
	case message.Document != nil:
		return b.sendMessage(ctx, chatID, switchToTextText, getModeKeyboard(settings.Mode))
	case settings.Mode == domain.ModePDF:
		return b.sendMessage(ctx, chatID, switchToPDFText, getModeKeyboard(settings.Mode))
	default:
		return b.handleText(ctx, chatID, message.Text)
	}
}

func (b *Bot) handleText(ctx context.Context, chatID int64, text string) error {
	return b.withSpinner(ctx, chatID, func() error {
		outcome, err := b.pipeline.SummarizeText(ctx, text)
		if err != nil {
			return b.sendFailure(ctx, chatID, err)
		}

		return b.sendOutcome(ctx, chatID, outcome)
	})
}

func (b *Bot) handleDocument(ctx context.Context, chatID int64, document *models.Document) error {
	if !b.pipeline.DocumentsEnabled() {
		return b.sendFailure(ctx, chatID, domain.Errorf(domain.KindConfiguration,
			"PDF mode is not available on this server."))
	}

	if !isPDF(document) {
		return b.sendFailure(ctx, chatID, domain.Errorf(domain.KindValidation,
			"Please upload a PDF file."))
	}

	if document.FileSize > b.maxDocumentBytes {
		return b.sendFailure(ctx, chatID, domain.Errorf(domain.KindValidation,
			"The file is too large. The limit is %s.", formatBytes(b.maxDocumentBytes)))
	}

	return b.withSpinner(ctx, chatID, func() error {
		data, err := b.downloadDocument(ctx, document)
		if err != nil {
			return b.sendFailure(ctx, chatID, err)
		}

		b.log.InfoContext(ctx, "Document is downloaded",
			"chatID", chatID,
			"fileName", document.FileName,
			"bytes", len(data))

		outcome, err := b.pipeline.SummarizeDocument(ctx, data)
		if err != nil {
			return b.sendFailure(ctx, chatID, err)
		}

		return b.sendOutcome(ctx, chatID, outcome)
	})
}

func (b *Bot) downloadDocument(ctx context.Context, document *models.Document) ([]byte, error) {
	file, err := b.api.GetFile(ctx, &tgbot.GetFileParams{FileID: document.FileID})
	if err != nil {
		return nil, domain.NewError(domain.KindServiceUnavailable,
			downloadFailedText, fmt.Errorf("get file: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.api.FileDownloadLink(file), nil)
	if err != nil {
		return nil, domain.NewError(domain.KindServiceUnavailable,
			downloadFailedText, fmt.Errorf("build request: %w", err))
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.KindServiceUnavailable,
			downloadFailedText, fmt.Errorf("do request: %w", err))
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			b.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"fileID", document.FileID)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.KindServiceUnavailable,
			downloadFailedText, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxDocumentBytes+1))
	if err != nil {
		return nil, domain.NewError(domain.KindServiceUnavailable,
			downloadFailedText, fmt.Errorf("read body: %w", err))
	}

	if int64(len(data)) > b.maxDocumentBytes {
		return nil, domain.Errorf(domain.KindValidation,
			"The file is too large. The limit is %s.", formatBytes(b.maxDocumentBytes))
	}

	if !domain.LooksLikePDF(data) {
		return nil, domain.Errorf(domain.KindValidation, "The file is not a valid PDF document.")
	}

	return data, nil
}

func isPDF(document *models.Document) bool {
	if strings.EqualFold(strings.TrimSpace(document.MimeType), pdfMimeType) {
		return true
	}

	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(document.FileName)), ".pdf")
}
